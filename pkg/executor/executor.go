package executor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuya-takeyama/strict-dir-sync/internal/checksum"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/cancel"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/planner"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/syncerr"
)

const (
	// DefaultTrashDir is the directory under the destination root that
	// receives trashed files: <destRoot>/<DefaultTrashDir>/<run time>/<rel path>.
	DefaultTrashDir = ".strict-dir-sync-trash"

	// TrashTimeFormat names the per-run directory inside the trash.
	TrashTimeFormat = "2006-01-02_15-04-05"

	// TempPattern names staged writes in progress. A match found by a scan
	// is a leftover of an interrupted run.
	TempPattern = ".strict-dir-sync-*.tmp"
)

type Options struct {
	SourceRoot string
	DestRoot   string
	// UseStaging writes to a temporary sibling and renames it into place.
	UseStaging bool
	// DeleteRemoved enables the empty-directory cleanup pass.
	DeleteRemoved bool
	// TrashDir is relative to DestRoot; empty means DefaultTrashDir.
	TrashDir string
	// RunTime names this run's trash directory.
	RunTime time.Time
	DryRun  bool
	// ScanErrors seeds the error counter with files that could not be
	// fingerprinted and were left out of the plan.
	ScanErrors int64
	// Leftovers are destination-relative temp files of an interrupted run,
	// removed before the plan is applied.
	Leftovers []string
}

// Result is the outcome of one planned item.
type Result struct {
	Item  planner.Item
	Error error
}

// Report is what Execute hands back, also when it stops early.
type Report struct {
	Stats   Stats
	Results []Result
}

type Executor struct {
	logger logger.Logger

	// beforeRename runs between writing a staged file and renaming it.
	beforeRename func(tempPath string) error
}

func NewExecutor(log logger.Logger) *Executor {
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &Executor{logger: log}
}

// Execute applies plan sequentially: directory creation first, then file
// actions, then the cleanup of stale directories. Per-item failures are
// logged and counted; the run goes on. When token is observed set it stops
// before the next item and returns syncerr.ErrCancelled with the report so far.
func (e *Executor) Execute(plan *planner.Plan, opts Options, token *cancel.Token) (*Report, error) {
	if opts.TrashDir == "" {
		opts.TrashDir = DefaultTrashDir
	}
	if opts.RunTime.IsZero() {
		opts.RunTime = time.Now()
	}

	r := &run{Executor: e, opts: opts, buf: make([]byte, checksum.BufferSize)}
	r.stats.add(&r.stats.Errors, opts.ScanErrors)
	report := &Report{}

	items := make([]planner.Item, 0, len(plan.Dirs)+len(plan.Files))
	items = append(items, plan.Dirs...)
	items = append(items, plan.Files...)

	r.removeLeftovers()

	e.logger.PhaseStart("execute", len(items))

	for _, item := range items {
		if err := token.Err(); err != nil {
			report.Stats = r.stats.Snapshot()
			return report, err
		}

		e.logger.ItemProcessed("execute", item.Path, string(item.Action))
		err := r.apply(item)
		if err != nil {
			e.logger.Error(string(item.Action), item.Path, err)
			r.stats.add(&r.stats.Errors, 1)
		}
		report.Results = append(report.Results, Result{Item: item, Error: err})
	}

	if opts.DeleteRemoved {
		if err := r.removeStaleDirs(plan.StaleDirs, token); err != nil {
			report.Stats = r.stats.Snapshot()
			return report, err
		}
	}

	report.Stats = r.stats.Snapshot()
	e.logger.PhaseComplete("execute", len(report.Results))
	return report, nil
}

// run holds the state of one Execute call.
type run struct {
	*Executor
	opts  Options
	stats Stats
	buf   []byte

	// trashRoot is created on first use
	trashRoot string
}

func (r *run) sourcePath(rel string) string {
	return filepath.Join(r.opts.SourceRoot, filepath.FromSlash(rel))
}

func (r *run) destPath(rel string) string {
	return filepath.Join(r.opts.DestRoot, filepath.FromSlash(rel))
}

func (r *run) apply(item planner.Item) error {
	switch item.Action {
	case planner.ActionSkip:
		if item.Err != nil {
			return syncerr.New(syncerr.KindExecution, "compare", item.Path, item.Err)
		}
		r.stats.add(&r.stats.Skipped, 1)
		return nil
	case planner.ActionCreateDir:
		if !r.opts.DryRun {
			if err := r.createDir(item.Path); err != nil {
				return syncerr.New(syncerr.KindExecution, "mkdir", item.Path, err)
			}
		}
		r.stats.add(&r.stats.DirsCreated, 1)
		return nil
	case planner.ActionCopy, planner.ActionUpdate:
		var n int64
		if !r.opts.DryRun {
			var err error
			n, err = r.copyFile(item.Path)
			if err != nil {
				return syncerr.New(syncerr.KindExecution, string(item.Action), item.Path, err)
			}
		}
		if item.Action == planner.ActionCopy {
			r.stats.add(&r.stats.Copied, 1)
		} else {
			r.stats.add(&r.stats.Updated, 1)
		}
		r.stats.add(&r.stats.BytesCopied, n)
		return nil
	case planner.ActionDelete:
		if !r.opts.DryRun {
			if err := os.Remove(r.destPath(item.Path)); err != nil {
				return syncerr.New(syncerr.KindExecution, "delete", item.Path, err)
			}
		}
		r.stats.add(&r.stats.Deleted, 1)
		return nil
	case planner.ActionTrash:
		if !r.opts.DryRun {
			if err := r.moveToTrash(item.Path); err != nil {
				return syncerr.New(syncerr.KindExecution, "trash", item.Path, err)
			}
		}
		r.stats.add(&r.stats.Trashed, 1)
		return nil
	default:
		return syncerr.New(syncerr.KindExecution, "apply", item.Path, fmt.Errorf("unknown action %q", item.Action))
	}
}

// createDir runs before any file is written, so it must leave the directory
// writable; source directory permissions are not mirrored.
func (r *run) createDir(rel string) error {
	return os.MkdirAll(r.destPath(rel), 0755)
}

// copyFile copies one file and preserves its permission bits and mtime.
// With staging the final path only ever holds the old or the complete new file.
func (r *run) copyFile(rel string) (int64, error) {
	src, dst := r.sourcePath(rel), r.destPath(rel)

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}

	dstDir := filepath.Dir(dst)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return 0, fmt.Errorf("create parent directory: %w", err)
	}

	var out *os.File
	target := dst
	if r.opts.UseStaging {
		out, err = os.CreateTemp(dstDir, TempPattern)
		if err != nil {
			return 0, fmt.Errorf("create temporary file: %w", err)
		}
		target = out.Name()
		// removes the temp file unless the rename below succeeded
		defer func() {
			if target != dst {
				os.Remove(target)
			}
		}()
	} else {
		out, err = os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return 0, fmt.Errorf("open destination: %w", err)
		}
	}

	n, err := io.CopyBuffer(out, in, r.buf)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("copy content: %w", err)
	}
	if r.opts.UseStaging {
		if err := out.Sync(); err != nil {
			out.Close()
			return n, fmt.Errorf("sync temporary file: %w", err)
		}
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("close destination: %w", err)
	}

	if err := os.Chmod(target, info.Mode().Perm()); err != nil {
		return n, fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
		return n, fmt.Errorf("set modification time: %w", err)
	}

	if r.opts.UseStaging {
		if r.beforeRename != nil {
			if err := r.beforeRename(target); err != nil {
				return n, err
			}
		}
		if err := os.Rename(target, dst); err != nil {
			return n, fmt.Errorf("rename into place: %w", err)
		}
		target = dst
	}

	return n, nil
}

func (r *run) removeLeftovers() {
	for _, rel := range r.opts.Leftovers {
		if r.opts.DryRun {
			r.logger.Info("would remove leftover temporary file", "path", rel)
			continue
		}
		if err := os.Remove(r.destPath(rel)); err != nil && !os.IsNotExist(err) {
			r.logger.Error("remove leftover", rel, syncerr.New(syncerr.KindExecution, "remove leftover", rel, err))
			r.stats.add(&r.stats.Errors, 1)
			continue
		}
		r.logger.Info("removed leftover temporary file", "path", rel)
	}
}

// moveToTrash moves rel into this run's trash directory at the same relative path.
func (r *run) moveToTrash(rel string) error {
	if r.trashRoot == "" {
		root := filepath.Join(r.opts.DestRoot, r.opts.TrashDir, r.opts.RunTime.Format(TrashTimeFormat))
		if err := os.MkdirAll(root, 0755); err != nil {
			return fmt.Errorf("create trash directory: %w", err)
		}
		r.trashRoot = root
		r.logger.Info("created trash directory", "path", root)
	}

	target := filepath.Join(r.trashRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create trash parent: %w", err)
	}
	if err := os.Rename(r.destPath(rel), target); err != nil {
		return fmt.Errorf("move to trash: %w", err)
	}
	return nil
}

// removeStaleDirs removes destination directories that have no source
// counterpart and are empty by now. dirs must be ordered deepest first.
func (r *run) removeStaleDirs(dirs []string, token *cancel.Token) error {
	trashPrefix := filepath.ToSlash(filepath.Clean(r.opts.TrashDir))
	for _, rel := range dirs {
		if err := token.Err(); err != nil {
			return err
		}
		if rel == "" || rel == "." {
			continue
		}
		if rel == trashPrefix || strings.HasPrefix(rel, trashPrefix+"/") {
			continue
		}

		abs := r.destPath(rel)
		entries, err := os.ReadDir(abs)
		if err != nil {
			r.logger.Error("rmdir", rel, err)
			r.stats.add(&r.stats.Errors, 1)
			continue
		}
		if len(entries) > 0 && !r.opts.DryRun {
			r.logger.Debug("keeping non-empty directory", "path", rel)
			continue
		}

		r.logger.ItemProcessed("cleanup", rel, "rmdir")
		if !r.opts.DryRun {
			if err := os.Remove(abs); err != nil {
				r.logger.Error("rmdir", rel, err)
				r.stats.add(&r.stats.Errors, 1)
				continue
			}
		}
		r.stats.add(&r.stats.DirsRemoved, 1)
	}
	return nil
}
