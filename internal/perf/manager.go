package perf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls C10's advisory caches.
type Config struct {
	CallCacheTTL   time.Duration
	TraceRingSize  int
	TracingEnabled bool
}

// Manager bundles the call cache, conversion cache, and trace ring behind
// one handle, the shape C3's dispatcher consults on the hot path.
type Manager struct {
	cfg        Config
	Calls      *CallCache
	Conversions *ConversionCache
	Trace      *TraceRing
}

// NewManager builds a Manager. Pass a non-nil Prometheus registerer to
// enable metrics across all three caches.
func NewManager(cfg Config, reg prometheus.Registerer) *Manager {
	m := NewMetrics(reg)
	return &Manager{
		cfg:         cfg,
		Calls:       NewCallCache(cfg.CallCacheTTL, m),
		Conversions: NewConversionCache(m),
		Trace:       NewTraceRing(cfg.TraceRingSize, m),
	}
}

// TracingEnabled reports whether callers should write trace entries.
func (m *Manager) TracingEnabled() bool {
	return m.cfg.TracingEnabled
}
