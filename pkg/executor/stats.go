package executor

import "sync/atomic"

// Stats tracks sync statistics. Counters only grow during a run and start
// from zero for every run.
type Stats struct {
	Copied      int64 `json:"copied"`
	Updated     int64 `json:"updated"`
	Skipped     int64 `json:"skipped"`
	Deleted     int64 `json:"deleted"`
	Trashed     int64 `json:"trashed"`
	DirsCreated int64 `json:"dirs_created"`
	DirsRemoved int64 `json:"dirs_removed"`
	Errors      int64 `json:"errors"`
	BytesCopied int64 `json:"bytes_copied"`
}

func (s *Stats) add(counter *int64, n int64) {
	atomic.AddInt64(counter, n)
}

// Snapshot returns a consistent copy of the counters.
func (s *Stats) Snapshot() Stats {
	return Stats{
		Copied:      atomic.LoadInt64(&s.Copied),
		Updated:     atomic.LoadInt64(&s.Updated),
		Skipped:     atomic.LoadInt64(&s.Skipped),
		Deleted:     atomic.LoadInt64(&s.Deleted),
		Trashed:     atomic.LoadInt64(&s.Trashed),
		DirsCreated: atomic.LoadInt64(&s.DirsCreated),
		DirsRemoved: atomic.LoadInt64(&s.DirsRemoved),
		Errors:      atomic.LoadInt64(&s.Errors),
		BytesCopied: atomic.LoadInt64(&s.BytesCopied),
	}
}

// Changed reports whether any filesystem mutation was counted.
func (s Stats) Changed() bool {
	return s.Copied+s.Updated+s.Deleted+s.Trashed+s.DirsCreated+s.DirsRemoved > 0
}
