package corectx

import (
	"context"
	"sync"
)

// ErrorSink receives error records as they are set, for forwarding to an
// external log/alert backend. Implementations must not block the caller for
// long; Record is called synchronously from SetError.
type ErrorSink interface {
	Record(ctx context.Context, err *Error) error
}

type slotKey struct{}

// slot is the "thread-local" last-error cell for one logical flow of
// control. Go has no real TLS, so we key it off context.Context — each
// session/request attaches its own slot via WithErrorSlot, mirroring the
// per-goroutine slot the source models.
type slot struct {
	mu   sync.Mutex
	last *Error
}

// WithErrorSlot attaches a fresh last-error slot to ctx. Call this once per
// session/request at its entry point.
func WithErrorSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, slotKey{}, &slot{})
}

func slotFrom(ctx context.Context) *slot {
	if s, ok := ctx.Value(slotKey{}).(*slot); ok {
		return s
	}
	return nil
}

// CoreContext is the process-wide context (C9): it owns the optional error
// sink and is passed into every other component's constructor explicitly
// (per spec §9 Design Notes "Global mutable state" — there is no package
// singleton).
type CoreContext struct {
	mu   sync.RWMutex
	sink ErrorSink
}

// NewContext constructs an empty CoreContext with no sink.
func NewContext() *CoreContext {
	return &CoreContext{}
}

// SetSink installs (or clears, with nil) the error sink.
func (c *CoreContext) SetSink(sink ErrorSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// SetError stores err into ctx's last-error slot (attaching one if ctx has
// none yet) and forwards it to the sink, if any. The forward error, if the
// sink itself fails, is swallowed: the sink is best-effort, per spec §7
// propagation policy — it must never become the caller's actual error.
func (c *CoreContext) SetError(ctx context.Context, err *Error) {
	if s := slotFrom(ctx); s != nil {
		s.mu.Lock()
		s.last = err
		s.mu.Unlock()
	}

	c.mu.RLock()
	sink := c.sink
	c.mu.RUnlock()
	if sink != nil {
		_ = sink.Record(ctx, err)
	}
}

// LastError returns the most recently set error for ctx's slot, or nil if
// none has been set (or ctx carries no slot).
func (c *CoreContext) LastError(ctx context.Context) *Error {
	s := slotFrom(ctx)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
