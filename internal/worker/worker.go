package worker

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

const maxConcurrency = 32

// Pool runs independent, stateless tasks on a bounded number of goroutines.
// A Pool holds no per-run state and can be reused across scans.
type Pool struct {
	concurrency int
}

// NewPool creates a new worker pool. A non-positive concurrency defaults to
// the number of CPUs, capped at 32.
func NewPool(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}
	return &Pool{concurrency: concurrency}
}

// Concurrency returns the maximum number of tasks running at once.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Run calls task(i) for every i in [0, n), at most Concurrency() at a time.
//
// check is consulted before each dispatch. When it returns an error nothing
// more is dispatched, tasks already running are waited for, and that error is
// returned. Tasks must not share mutable state except through their own index.
func (p *Pool) Run(n int, check func() error, task func(i int)) error {
	var g errgroup.Group
	g.SetLimit(p.concurrency)

	var stopErr error
	for i := 0; i < n; i++ {
		if check != nil {
			if err := check(); err != nil {
				stopErr = err
				break
			}
		}
		g.Go(func() error {
			task(i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return stopErr
}
