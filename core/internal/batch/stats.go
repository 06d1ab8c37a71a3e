package batch

import "sync"

// Failure records an entry that could not be decoded or delivered.
type Failure struct {
	Entry *Entry
	Err   error
}

// ProcessStats contains statistics from a batch processing operation.
type ProcessStats struct {
	// Processed is the number of entries successfully written to the sink.
	Processed int

	// Skipped is the number of entries skipped (ShouldProcess returned false).
	Skipped int

	// TotalBytes is the sum of UncompSize for all processed entries.
	TotalBytes uint64

	// Failed lists entries that failed, in no particular order.
	Failed []Failure
}

// recorder accumulates ProcessStats from concurrent workers.
type recorder struct {
	mu       sync.Mutex
	stats    ProcessStats
	progress func(entry *Entry, processed int, bytes uint64)
}

func (r *recorder) ok(entry *Entry, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Processed++
	r.stats.TotalBytes += uint64(n) //nolint:gosec // n is a slice length
	if r.progress != nil {
		r.progress(entry, r.stats.Processed, r.stats.TotalBytes)
	}
}

func (r *recorder) fail(entry *Entry, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Failed = append(r.stats.Failed, Failure{Entry: entry, Err: err})
}
