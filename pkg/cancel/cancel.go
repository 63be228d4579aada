// Package cancel provides the cooperative cancellation flag observed by the
// scanner and executor between units of work.
package cancel

import (
	"context"
	"sync/atomic"

	"github.com/yuya-takeyama/strict-dir-sync/pkg/syncerr"
)

// Token is a thread-safe flag that is set once and never cleared.
// The zero value is ready to use.
type Token struct {
	set atomic.Bool
}

// New returns an unset token.
func New() *Token {
	return &Token{}
}

// Cancel sets the flag. Calling it more than once is harmless.
func (t *Token) Cancel() {
	t.set.Store(true)
}

// Cancelled reports whether Cancel has been called. A nil token is never cancelled.
func (t *Token) Cancelled() bool {
	return t != nil && t.set.Load()
}

// Err returns syncerr.ErrCancelled once the token is set, nil otherwise.
func (t *Token) Err() error {
	if t.Cancelled() {
		return syncerr.ErrCancelled
	}
	return nil
}

// WatchContext sets the token when ctx is done. The returned function stops
// the watcher; it must be called to release the goroutine.
func (t *Token) WatchContext(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			t.Cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
