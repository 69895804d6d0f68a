package wire

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// Handler processes one decoded message for a given session id.
type Handler func(ctx context.Context, sessionID string, msg Message) error

// dispatchMetrics is the lazy-nil-when-disabled Prometheus counter set
// (teacher idiom: `pkg/metrics/prometheus/badger.go`'s nil-receiver
// guard), one counter per wire message type.
type dispatchMetrics struct {
	messages *prometheus.CounterVec
}

func newDispatchMetrics(reg prometheus.Registerer) *dispatchMetrics {
	if reg == nil {
		return nil
	}
	return &dispatchMetrics{
		messages: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "polycall_wire_messages_total",
				Help: "Total wire messages dispatched, by message type.",
			},
			[]string{"type"},
		),
	}
}

func (m *dispatchMetrics) observe(t MessageType) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(t.String()).Inc()
}

// Dispatcher routes decoded messages by type (spec §4.5) to registered
// per-type handlers.
type Dispatcher struct {
	handlers map[MessageType]Handler
	metrics  *dispatchMetrics
}

// NewDispatcher creates a Dispatcher. Pass a non-nil Prometheus registerer
// to enable per-type message counters; pass nil to disable metrics.
func NewDispatcher(reg prometheus.Registerer) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[MessageType]Handler),
		metrics:  newDispatchMetrics(reg),
	}
}

// On registers the handler for a message type, replacing any prior entry.
func (d *Dispatcher) On(t MessageType, h Handler) {
	d.handlers[t] = h
}

// Dispatch routes msg to its registered handler, if any. Messages with no
// registered handler are silently dropped after being counted, matching
// the framer's "drop malformed/unhandled frames after logging" policy
// (spec §7 propagation policy for C5).
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, msg Message) error {
	d.metrics.observe(msg.Header.Type)

	h, ok := d.handlers[msg.Header.Type]
	if !ok {
		return nil
	}
	if err := h(ctx, sessionID, msg); err != nil {
		return corectx.NewWithCause("wire", corectx.CodeInternal, "handler failed", err).WithContext(msg.Header.Type.String())
	}
	return nil
}
