// Package notify delivers the end-of-run summary to external sinks.
package notify

import (
	"context"
	"errors"

	"github.com/yuya-takeyama/strict-dir-sync/internal/report"
	"github.com/yuya-takeyama/strict-dir-sync/pkg/logger"
)

// Notifier receives the summary of a finished run. The summary is Markdown.
type Notifier interface {
	Notify(ctx context.Context, summary string) error
}

// LogNotifier writes the summary to the logger without Markdown markers.
type LogNotifier struct {
	Logger logger.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, summary string) error {
	n.Logger.Info("sync summary\n" + report.Plain(summary))
	return nil
}

// Multi fans a summary out to every notifier. All are called even when
// some fail; the failures are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, summary string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
