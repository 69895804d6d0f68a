package perf

import (
	"sync"
	"time"
)

// TraceEntry is one recorded call-trace record (spec §4.10/§4.3: "trace
// entries written to C10 when tracing is enabled").
type TraceEntry struct {
	Function    string
	Correlation uint64
	Duration    time.Duration
	Err         string
	At          time.Time
}

// TraceRing is a fixed-capacity ring buffer; once full, the oldest entry is
// overwritten (spec §4.10: "Trace ring is fixed-capacity; overflow
// overwrites oldest").
type TraceRing struct {
	mu       sync.Mutex
	entries  []TraceEntry
	next     int
	size     int
	capacity int
	metrics  *cacheMetrics
}

// NewTraceRing creates a TraceRing holding at most capacity entries.
func NewTraceRing(capacity int, metrics *cacheMetrics) *TraceRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &TraceRing{entries: make([]TraceEntry, capacity), capacity: capacity, metrics: metrics}
}

// Record appends entry, overwriting the oldest slot once the ring is full.
func (r *TraceRing) Record(entry TraceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == r.capacity {
		r.metrics.observeEvicted()
	} else {
		r.size++
	}
	r.entries[r.next] = entry
	r.next = (r.next + 1) % r.capacity
}

// Snapshot returns the currently held entries, oldest first.
func (r *TraceRing) Snapshot() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TraceEntry, 0, r.size)
	start := (r.next - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		out = append(out, r.entries[(start+i)%r.capacity])
	}
	return out
}

// RecordCall builds a TraceEntry from a fingerprint-derived correlation id,
// using fingerprintUint64 to fold the full hash into a compact sortable id
// for log correlation.
func (r *TraceRing) RecordCall(function string, fp Fingerprint, dur time.Duration, callErr error, at time.Time) {
	entry := TraceEntry{Function: function, Correlation: fingerprintUint64(fp), Duration: dur, At: at}
	if callErr != nil {
		entry.Err = callErr.Error()
	}
	r.Record(entry)
}
