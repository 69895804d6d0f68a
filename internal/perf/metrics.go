package perf

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cacheMetrics is the lazy-nil-when-disabled Prometheus counter set,
// matching the teacher's `pkg/metrics/prometheus/badger.go` nil-receiver
// guard idiom (also reused in `internal/wire/dispatcher.go`).
type cacheMetrics struct {
	hits    *prometheus.CounterVec
	misses  *prometheus.CounterVec
	evicted prometheus.Counter
}

// NewMetrics registers C10's Prometheus series against reg. Pass nil to
// disable metrics entirely; every method on the returned value then
// becomes a no-op.
func NewMetrics(reg prometheus.Registerer) *cacheMetrics {
	if reg == nil {
		return nil
	}
	return &cacheMetrics{
		hits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "polycall_perf_cache_hits_total",
			Help: "Cache hits by cache name (call, conversion).",
		}, []string{"cache"}),
		misses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "polycall_perf_cache_misses_total",
			Help: "Cache misses by cache name (call, conversion).",
		}, []string{"cache"}),
		evicted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "polycall_perf_trace_entries_evicted_total",
			Help: "Trace ring entries overwritten due to capacity.",
		}),
	}
}

func (m *cacheMetrics) observeHit(cache string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(cache).Inc()
}

func (m *cacheMetrics) observeMiss(cache string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(cache).Inc()
}

func (m *cacheMetrics) observeEvicted() {
	if m == nil {
		return
	}
	m.evicted.Inc()
}
