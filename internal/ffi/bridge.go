package ffi

import (
	"context"

	"github.com/obinexus/polycall-core/internal/values"
)

// BridgeCapabilities describes what a language bridge supports, consulted
// when expose_function validates a signature against the bridge (spec
// §4.3: "signature is validated against bridge capability") and by the
// runtime's linearizability guarantee (spec §5: "each bridge serializes
// its entries unless it declares thread-safety").
type BridgeCapabilities struct {
	// ThreadSafe reports whether the bridge may be invoked concurrently by
	// multiple callers. A false value means the registry serializes calls
	// to this bridge with its own lock.
	ThreadSafe bool

	// SupportedKinds restricts which value kinds may cross into this
	// bridge's native representation. A nil slice means all kinds are
	// accepted.
	SupportedKinds []values.Kind
}

// supports reports whether k is acceptable to this bridge.
func (c BridgeCapabilities) supports(k values.Kind) bool {
	if c.SupportedKinds == nil {
		return true
	}
	for _, s := range c.SupportedKinds {
		if s == k {
			return true
		}
	}
	return false
}

// LanguageBridge adapts one foreign runtime to the FFI core. Initialize is
// called once at register_language time; ConvertFromNative/ConvertToNative
// marshal values across the native/foreign boundary; Dispatch performs the
// actual foreign call.
type LanguageBridge interface {
	Initialize(ctx context.Context) error
	Capabilities() BridgeCapabilities

	// ConvertFromNative converts a native Value into this bridge's wire
	// representation before crossing into its runtime.
	ConvertFromNative(v *values.Value) (*values.Value, error)

	// ConvertToNative converts a value produced by this bridge back into
	// the native Value representation.
	ConvertToNative(v *values.Value) (*values.Value, error)

	// Dispatch invokes fn.Ptr inside this bridge's runtime with args already
	// converted into this bridge's representation, returning the raw
	// (not-yet-converted-back) result, or a *BridgeException on a foreign
	// exception.
	Dispatch(ctx context.Context, fn *ExposedFunction, args []*values.Value) (*values.Value, error)
}
