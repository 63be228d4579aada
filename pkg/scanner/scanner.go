// Package scanner builds the Inventory of one directory tree: every regular,
// non-excluded file mapped to its fingerprint.
package scanner

import (
	"fmt"

	"github.com/yuya-takeyama/strict-dir-sync/internal/walker"
	"github.com/yuya-takeyama/strict-dir-sync/internal/worker"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/cancel"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/syncerr"
)

// Inventory maps relative paths (forward slashes) of one tree to fingerprints.
type Inventory struct {
	Root  string
	Mode  fingerprint.Mode
	Files map[string]fingerprint.Fingerprint
	Dirs  map[string]struct{}
	// Errors counts files and directories that could not be read and were left out.
	Errors int
	// Unreadable holds their relative paths. A directory here hides its whole subtree.
	Unreadable map[string]struct{}
	// Leftovers are files matching Options.Leftovers; they are not in Files.
	Leftovers []string
}

// HasDir reports whether rel is a directory of the tree.
func (inv *Inventory) HasDir(rel string) bool {
	_, ok := inv.Dirs[rel]
	return ok
}

type Options struct {
	Excludes []string
	Mode     fingerprint.Mode
	Parallel bool
	// SkipDirs are relative directories left out entirely, such as the trash.
	SkipDirs []string
	// Leftovers is a base-name pattern for files left behind by an
	// interrupted run. They are listed apart and never fingerprinted.
	Leftovers string
}

// Scanner walks trees and fingerprints their files.
type Scanner struct {
	pool   *worker.Pool
	logger logger.Logger
}

// New creates a Scanner. pool is only used for parallel scans and may be nil
// otherwise.
func New(pool *worker.Pool, log logger.Logger) *Scanner {
	if log == nil {
		log = &logger.NullLogger{}
	}
	return &Scanner{pool: pool, logger: log}
}

// Scan builds the Inventory of root. It returns syncerr.ErrCancelled as soon
// as token is observed set; per-file read errors are logged and counted.
func (s *Scanner) Scan(root string, opts Options, token *cancel.Token) (*Inventory, error) {
	w, err := walker.NewWalker(root, opts.Excludes, opts.SkipDirs)
	if err != nil {
		return nil, syncerr.New(syncerr.KindStructural, "scan", root, err)
	}

	if opts.Leftovers != "" {
		if err := w.CollectLeftovers(opts.Leftovers); err != nil {
			return nil, syncerr.New(syncerr.KindStructural, "scan", root, err)
		}
	}

	s.logger.Info("scanning directory", "root", w.Root(), "mode", opts.Mode.String(), "parallel", opts.Parallel)

	walked, err := w.Walk(token.Err)
	if err != nil {
		if syncerr.IsCancelled(err) {
			return nil, err
		}
		return nil, syncerr.New(syncerr.KindStructural, "scan", root, err)
	}

	inv := &Inventory{
		Root:  w.Root(),
		Mode:  opts.Mode,
		Files: make(map[string]fingerprint.Fingerprint, len(walked.Files)),
		Dirs:  make(map[string]struct{}, len(walked.Dirs)),
	}
	for _, d := range walked.Dirs {
		inv.Dirs[d] = struct{}{}
	}
	inv.Leftovers = walked.Leftovers
	inv.Unreadable = make(map[string]struct{}, len(walked.Unreadable))
	for _, rel := range walked.Unreadable {
		inv.Unreadable[rel] = struct{}{}
	}
	for _, werr := range walked.Errors {
		s.logger.Error("scan", root, werr)
		inv.Errors++
	}

	s.logger.PhaseStart("scan", len(walked.Files))

	type slot struct {
		fp  fingerprint.Fingerprint
		err error
	}
	results := make([]slot, len(walked.Files))
	compute := func(i int) {
		fp, err := fingerprint.Compute(walked.Files[i].Path, opts.Mode)
		results[i] = slot{fp: fp, err: err}
	}

	if opts.Parallel && s.pool != nil {
		s.logger.Debug("fingerprinting in parallel", "workers", s.pool.Concurrency())
		if err := s.pool.Run(len(walked.Files), token.Err, compute); err != nil {
			return nil, err
		}
	} else {
		for i := range walked.Files {
			if err := token.Err(); err != nil {
				return nil, err
			}
			compute(i)
		}
	}

	// merged by this goroutine only; workers never touch the map
	for i, f := range walked.Files {
		r := results[i]
		if r.err != nil {
			s.logger.Error("fingerprint", f.RelPath, r.err)
			inv.Errors++
			inv.Unreadable[f.RelPath] = struct{}{}
			continue
		}
		inv.Files[f.RelPath] = r.fp
	}

	s.logger.PhaseComplete("scan", len(inv.Files))
	return inv, nil
}

func (inv *Inventory) String() string {
	return fmt.Sprintf("%s (%d files, %d dirs)", inv.Root, len(inv.Files), len(inv.Dirs))
}
