package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is the line-oriented sink the sync engine writes progress and
// per-file problems to. Where the lines end up is up to the implementation.
type Logger interface {
	PhaseStart(phase string, totalItems int)
	ItemProcessed(phase string, item string, action string)
	PhaseComplete(phase string, processedItems int)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Error(operation, path string, err error)
}

// SyncLogger writes structured text lines through log/slog. Info and debug
// lines go to Stdout, errors to Stderr.
type SyncLogger struct {
	IsDryRun  bool
	IsQuiet   bool // drop everything below error
	IsVerbose bool // include debug lines and skipped items
	RunID     string
	Stdout    io.Writer
	Stderr    io.Writer

	once sync.Once
	log  *slog.Logger
}

func (l *SyncLogger) logger() *slog.Logger {
	l.once.Do(func() {
		stdout, stderr := l.Stdout, l.Stderr
		if stdout == nil {
			stdout = os.Stdout
		}
		if stderr == nil {
			stderr = os.Stderr
		}
		level := slog.LevelInfo
		if l.IsVerbose {
			level = slog.LevelDebug
		}
		l.log = slog.New(&levelDispatchHandler{
			stdout: slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level}),
			stderr: slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		})
		if l.RunID != "" {
			l.log = l.log.With("run_id", l.RunID)
		}
		if l.IsDryRun {
			l.log = l.log.With("dryrun", true)
		}
	})
	return l.log
}

func (l *SyncLogger) PhaseStart(phase string, totalItems int) {
	if l.IsQuiet {
		return
	}
	l.logger().Info("phase started", "phase", phase, "items", totalItems)
}

func (l *SyncLogger) ItemProcessed(phase string, item string, action string) {
	if l.IsQuiet {
		return
	}
	if action == "skip" && !l.IsVerbose {
		return
	}
	l.logger().Info(action, "phase", phase, "path", item)
}

func (l *SyncLogger) PhaseComplete(phase string, processedItems int) {
	if l.IsQuiet {
		return
	}
	l.logger().Info("phase complete", "phase", phase, "processed", processedItems)
}

func (l *SyncLogger) Info(msg string, args ...any) {
	if l.IsQuiet {
		return
	}
	l.logger().Info(msg, args...)
}

func (l *SyncLogger) Debug(msg string, args ...any) {
	l.logger().Debug(msg, args...)
}

func (l *SyncLogger) Error(operation, path string, err error) {
	l.logger().Error(operation+" failed", "path", path, "error", err)
}

// levelDispatchHandler sends records at warn and above to one handler and
// everything else to another.
type levelDispatchHandler struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (h *levelDispatchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.stdout.Enabled(ctx, level) || h.stderr.Enabled(ctx, level)
}

func (h *levelDispatchHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderr.Handle(ctx, r)
	}
	return h.stdout.Handle(ctx, r)
}

func (h *levelDispatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelDispatchHandler{
		stdout: h.stdout.WithAttrs(attrs),
		stderr: h.stderr.WithAttrs(attrs),
	}
}

func (h *levelDispatchHandler) WithGroup(name string) slog.Handler {
	return &levelDispatchHandler{
		stdout: h.stdout.WithGroup(name),
		stderr: h.stderr.WithGroup(name),
	}
}

type NullLogger struct{}

func (l *NullLogger) PhaseStart(phase string, totalItems int) {}

func (l *NullLogger) ItemProcessed(phase string, item string, action string) {}

func (l *NullLogger) PhaseComplete(phase string, processedItems int) {}

func (l *NullLogger) Info(msg string, args ...any) {}

func (l *NullLogger) Debug(msg string, args ...any) {}

func (l *NullLogger) Error(operation, path string, err error) {}

var (
	_ Logger = (*SyncLogger)(nil)
	_ Logger = (*NullLogger)(nil)
)
