package worker

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolConcurrency(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "explicit", in: 4, want: 4},
		{name: "capped", in: 100, want: maxConcurrency},
		{name: "default", in: 0, want: min(runtime.NumCPU(), maxConcurrency)},
		{name: "negative", in: -1, want: min(runtime.NumCPU(), maxConcurrency)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPool(tt.in).Concurrency(); got != tt.want {
				t.Errorf("Concurrency() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunCallsEveryIndexOnce(t *testing.T) {
	const n = 200
	results := make([]int, n)

	err := NewPool(8).Run(n, nil, func(i int) {
		results[i]++
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, c := range results {
		if c != 1 {
			t.Fatalf("task %d ran %d times, want 1", i, c)
		}
	}
}

func TestRunRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32

	err := NewPool(3).Run(30, nil, func(i int) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestRunStopsDispatchingWhenCheckFails(t *testing.T) {
	stop := errors.New("stop")
	var dispatched atomic.Int32
	checks := 0

	err := NewPool(1).Run(10, func() error {
		checks++
		if checks > 4 {
			return stop
		}
		return nil
	}, func(i int) {
		dispatched.Add(1)
	})

	if !errors.Is(err, stop) {
		t.Fatalf("Run() error = %v, want %v", err, stop)
	}
	if got := dispatched.Load(); got != 4 {
		t.Errorf("dispatched = %d, want 4", got)
	}
}

func TestRunWaitsForRunningTasksWhenCheckFails(t *testing.T) {
	stop := errors.New("stop")
	var started, finished atomic.Int32

	err := NewPool(4).Run(10, func() error {
		if started.Load() >= 3 {
			return stop
		}
		return nil
	}, func(i int) {
		started.Add(1)
		time.Sleep(5 * time.Millisecond)
		finished.Add(1)
	})

	if !errors.Is(err, stop) {
		t.Fatalf("Run() error = %v, want %v", err, stop)
	}
	if s, f := started.Load(), finished.Load(); s != f {
		t.Errorf("Run() returned with %d of %d started tasks finished", f, s)
	}
}
