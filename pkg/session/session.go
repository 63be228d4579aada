// Package session runs one sync from path resolution to the final summary.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yuya-takeyama/strict-dir-sync/internal/report"
	"github.com/yuya-takeyama/strict-dir-sync/internal/worker"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/cancel"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/executor"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/notify"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/planner"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/resolver"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/scanner"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/syncerr"
)

// ErrAlreadyRunning is returned when Run is called while a run is in progress.
var ErrAlreadyRunning = errors.New("session is already running")

// Options are the policy flags of one run.
type Options struct {
	NoOverwrite   bool
	DeleteRemoved bool
	SyncEmptyDirs bool
	Excludes      []string
	Mode          fingerprint.Mode
	ParallelScan  bool
	ScanWorkers   int
	UseStaging    bool
	UseTrash      bool
	DryRun        bool
}

type Config struct {
	Source      string
	Destination string
	SourceCreds *resolver.Credentials
	DestCreds   *resolver.Credentials
	Options     Options
	// RunID identifies the run in logs and the summary. Generated when empty.
	RunID string
}

// Deps are the collaborators of a session. Nil fields get local defaults.
type Deps struct {
	SourceResolver resolver.PathResolver
	DestResolver   resolver.PathResolver
	Notifier       notify.Notifier
	Logger         logger.Logger
	// OnTransition is called on every state change.
	OnTransition func(from, to State)
	Now          func() time.Time
}

// Result is the single reportable record of a run.
type Result struct {
	RunID     string
	Outcome   Outcome
	Stats     executor.Stats
	Plan      *planner.Plan
	Results   []executor.Result
	Err       error
	StartedAt time.Time
	Duration  time.Duration
	Summary   string
}

type Session struct {
	cfg  Config
	deps Deps

	running atomic.Bool
	mu      sync.Mutex
	state   State
}

func New(cfg Config, deps Deps) *Session {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if deps.Logger == nil {
		deps.Logger = &logger.NullLogger{}
	}
	if deps.SourceResolver == nil {
		deps.SourceResolver = &resolver.LocalResolver{}
	}
	if deps.DestResolver == nil {
		deps.DestResolver = &resolver.LocalResolver{Writable: true}
	}
	if deps.Notifier == nil {
		deps.Notifier = &notify.LogNotifier{Logger: deps.Logger}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{cfg: cfg, deps: deps}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	s.deps.Logger.Info("session state changed", "from", from.String(), "to", to.String())
	if s.deps.OnTransition != nil {
		s.deps.OnTransition(from, to)
	}
}

// Run performs the sync. It always returns a Result; the outcome is
// cancelled when token was observed set, failed when the run could not
// complete, succeeded otherwise. Per-file problems do not fail a run; they
// are counted in Stats.Errors. The summary is handed to the notifier once.
func (s *Session) Run(ctx context.Context, token *cancel.Token) *Result {
	if !s.running.CompareAndSwap(false, true) {
		return &Result{RunID: s.cfg.RunID, Outcome: OutcomeFailed, Err: ErrAlreadyRunning}
	}
	defer s.running.Store(false)

	s.mu.Lock()
	s.state = StateInit
	s.mu.Unlock()

	start := s.deps.Now()
	res := &Result{RunID: s.cfg.RunID, StartedAt: start}

	err := s.run(ctx, token, res)
	res.Duration = s.deps.Now().Sub(start)
	res.Err = err

	switch {
	case err == nil:
		res.Outcome = OutcomeSucceeded
	case syncerr.IsCancelled(err):
		res.Outcome = OutcomeCancelled
	default:
		res.Outcome = OutcomeFailed
		s.deps.Logger.Error("sync", s.cfg.Source, err)
	}
	s.transition(res.Outcome.state())

	res.Summary = report.Render(report.Summary{
		RunID:       s.cfg.RunID,
		Source:      s.cfg.Source,
		Destination: s.cfg.Destination,
		Outcome:     string(res.Outcome),
		DryRun:      s.cfg.Options.DryRun,
		Stats:       res.Stats,
		Duration:    res.Duration,
		Err:         err,
	})

	// the summary still goes out after an interrupt
	if nerr := s.deps.Notifier.Notify(context.WithoutCancel(ctx), res.Summary); nerr != nil {
		s.deps.Logger.Error("notify", "", nerr)
	}

	return res
}

func (s *Session) run(ctx context.Context, token *cancel.Token, res *Result) error {
	opts := s.cfg.Options

	s.transition(StateResolvingPaths)
	if err := s.resolve(ctx, s.deps.SourceResolver, s.cfg.Source, s.cfg.SourceCreds); err != nil {
		return err
	}
	if err := s.resolve(ctx, s.deps.DestResolver, s.cfg.Destination, s.cfg.DestCreds); err != nil {
		return err
	}
	if err := token.Err(); err != nil {
		return err
	}

	sourceRoot, destRoot, destExists, err := s.checkStructure()
	if err != nil {
		return err
	}

	s.transition(StateScanning)
	pool := worker.NewPool(opts.ScanWorkers)
	scn := scanner.New(pool, s.deps.Logger)

	// the trash name is reserved in both trees
	source, err := scn.Scan(sourceRoot, scanner.Options{
		Excludes:  opts.Excludes,
		Mode:      opts.Mode,
		Parallel:  opts.ParallelScan,
		SkipDirs:  []string{executor.DefaultTrashDir},
		Leftovers: executor.TempPattern,
	}, token)
	if err != nil {
		return err
	}

	var dest *scanner.Inventory
	if destExists {
		dest, err = scn.Scan(destRoot, scanner.Options{
			Excludes:  opts.Excludes,
			Mode:      opts.Mode,
			Parallel:  opts.ParallelScan,
			SkipDirs:  []string{executor.DefaultTrashDir},
			Leftovers: executor.TempPattern,
		}, token)
		if err != nil {
			return err
		}
	} else {
		// only reachable in a dry run; nothing has been created yet
		dest = &scanner.Inventory{
			Root:  destRoot,
			Mode:  opts.Mode,
			Files: map[string]fingerprint.Fingerprint{},
			Dirs:  map[string]struct{}{},
		}
	}

	if _, err := os.Lstat(filepath.Join(sourceRoot, executor.DefaultTrashDir)); err == nil {
		s.deps.Logger.Info("source directory uses the reserved trash name and is not synced", "path", executor.DefaultTrashDir)
	}
	s.deps.Logger.Info("scan complete", "source", source.String(), "destination", dest.String())

	s.transition(StatePlanning)
	plan := planner.NewPlanner(nil, s.deps.Logger).Plan(source, dest, planner.Options{
		Mode:          opts.Mode,
		NoOverwrite:   opts.NoOverwrite,
		DeleteRemoved: opts.DeleteRemoved,
		UseTrash:      opts.UseTrash,
		SyncEmptyDirs: opts.SyncEmptyDirs,
	})
	res.Plan = plan
	counts := plan.Counts()
	s.deps.Logger.Info("plan ready",
		"copy", counts[planner.ActionCopy],
		"update", counts[planner.ActionUpdate],
		"skip", counts[planner.ActionSkip],
		"delete", counts[planner.ActionDelete],
		"trash", counts[planner.ActionTrash],
		"mkdir", counts[planner.ActionCreateDir],
		"stale_dirs", len(plan.StaleDirs),
	)
	if err := token.Err(); err != nil {
		return err
	}

	s.transition(StateExecuting)
	execReport, err := executor.NewExecutor(s.deps.Logger).Execute(plan, executor.Options{
		SourceRoot:    sourceRoot,
		DestRoot:      destRoot,
		UseStaging:    opts.UseStaging,
		DeleteRemoved: opts.DeleteRemoved,
		RunTime:       res.StartedAt,
		DryRun:        opts.DryRun,
		ScanErrors:    int64(source.Errors + dest.Errors),
		Leftovers:     dest.Leftovers,
	}, token)
	res.Stats = execReport.Stats
	res.Results = execReport.Results
	return err
}

// resolve asks r once whether path is usable.
func (s *Session) resolve(ctx context.Context, r resolver.PathResolver, path string, creds *resolver.Credentials) error {
	ok, err := r.Ready(ctx, path, creds)
	if err != nil {
		return syncerr.New(syncerr.KindPathUnreachable, "resolve", path, err)
	}
	if !ok {
		return syncerr.New(syncerr.KindPathUnreachable, "resolve", path, errors.New("path is not reachable"))
	}
	s.deps.Logger.Info("path ready", "path", path)
	return nil
}

// checkStructure validates both roots and creates a missing destination.
// The returned roots are absolute.
func (s *Session) checkStructure() (sourceRoot, destRoot string, destExists bool, err error) {
	sourceRoot, err = filepath.Abs(s.cfg.Source)
	if err != nil {
		return "", "", false, syncerr.New(syncerr.KindStructural, "resolve", s.cfg.Source, err)
	}
	destRoot, err = filepath.Abs(s.cfg.Destination)
	if err != nil {
		return "", "", false, syncerr.New(syncerr.KindStructural, "resolve", s.cfg.Destination, err)
	}

	info, err := os.Stat(sourceRoot)
	if err != nil {
		return "", "", false, syncerr.New(syncerr.KindStructural, "stat source", sourceRoot, err)
	}
	if !info.IsDir() {
		return "", "", false, syncerr.New(syncerr.KindStructural, "stat source", sourceRoot, errors.New("not a directory"))
	}

	// a symlinked root is synced as the directory it points to
	if sourceRoot, err = realPath(sourceRoot); err != nil {
		return "", "", false, syncerr.New(syncerr.KindStructural, "resolve source", s.cfg.Source, err)
	}
	if destRoot, err = realPath(destRoot); err != nil {
		return "", "", false, syncerr.New(syncerr.KindStructural, "resolve destination", s.cfg.Destination, err)
	}

	if nested(sourceRoot, destRoot) || nested(destRoot, sourceRoot) {
		return "", "", false, syncerr.New(syncerr.KindStructural, "check roots", destRoot,
			fmt.Errorf("source %s and destination overlap", sourceRoot))
	}

	info, err = os.Stat(destRoot)
	switch {
	case os.IsNotExist(err):
		if s.cfg.Options.DryRun {
			s.deps.Logger.Info("destination does not exist, would be created", "path", destRoot)
			return sourceRoot, destRoot, false, nil
		}
		if err := os.MkdirAll(destRoot, 0755); err != nil {
			return "", "", false, syncerr.New(syncerr.KindStructural, "create destination", destRoot, err)
		}
		s.deps.Logger.Info("created destination directory", "path", destRoot)
	case err != nil:
		return "", "", false, syncerr.New(syncerr.KindStructural, "stat destination", destRoot, err)
	case !info.IsDir():
		return "", "", false, syncerr.New(syncerr.KindStructural, "stat destination", destRoot, errors.New("not a directory"))
	}

	return sourceRoot, destRoot, true, nil
}

// realPath resolves symlinks in the longest existing prefix of p and appends
// the part that does not exist yet.
func realPath(p string) (string, error) {
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		missing = append([]string{filepath.Base(p)}, missing...)
		p = parent
	}
}

// nested reports whether child is parent or lies inside it.
func nested(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
