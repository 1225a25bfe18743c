package videoworker

import (
	"sync/atomic"
)

// RecordingStats carries the cumulative totals across all finished
// recordings. Counters only move for outputs above the stats floor, so a
// few seconds of junk never inflates the totals.
type RecordingStats struct {
	recordings int64
	bytes      int64
	seconds    int64
}

// Stats is the process-wide instance. Persistence plugins seed it at
// startup and snapshot it after each recording.
var Stats = &RecordingStats{}

func (s *RecordingStats) Add(bytes int64, seconds int64) {
	atomic.AddInt64(&s.recordings, 1)
	atomic.AddInt64(&s.bytes, bytes)
	atomic.AddInt64(&s.seconds, seconds)
}

// Seed loads persisted totals. Only meaningful before recordings run.
func (s *RecordingStats) Seed(recordings, bytes, seconds int64) {
	atomic.StoreInt64(&s.recordings, recordings)
	atomic.StoreInt64(&s.bytes, bytes)
	atomic.StoreInt64(&s.seconds, seconds)
}

func (s *RecordingStats) Snapshot() (recordings, bytes, seconds int64) {
	return atomic.LoadInt64(&s.recordings), atomic.LoadInt64(&s.bytes), atomic.LoadInt64(&s.seconds)
}
