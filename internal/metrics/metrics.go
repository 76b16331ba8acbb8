package metrics

import "sync/atomic"

// Metrics captures shared operational stats for pipeline runs.
type Metrics struct {
	runs         int64
	failedRuns   int64
	dispatched   int64
	failedConvos int64
	skippedEmpty int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	Runs         int64 `json:"runs"`
	FailedRuns   int64 `json:"failed_runs"`
	Dispatched   int64 `json:"conversations_dispatched"`
	FailedConvos int64 `json:"conversations_failed"`
	SkippedEmpty int64 `json:"empty_days"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordRun accounts for one completed pipeline pass.
func (m *Metrics) RecordRun(dispatched, failed int, runErr error) {
	atomic.AddInt64(&m.runs, 1)
	if runErr != nil {
		atomic.AddInt64(&m.failedRuns, 1)
		return
	}
	if dispatched == 0 {
		atomic.AddInt64(&m.skippedEmpty, 1)
	}
	atomic.AddInt64(&m.dispatched, int64(dispatched-failed))
	atomic.AddInt64(&m.failedConvos, int64(failed))
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Runs:         atomic.LoadInt64(&m.runs),
		FailedRuns:   atomic.LoadInt64(&m.failedRuns),
		Dispatched:   atomic.LoadInt64(&m.dispatched),
		FailedConvos: atomic.LoadInt64(&m.failedConvos),
		SkippedEmpty: atomic.LoadInt64(&m.skippedEmpty),
	}
}
