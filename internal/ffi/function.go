package ffi

import (
	"context"

	"github.com/obinexus/polycall-core/internal/values"
)

// NativeFunc is the Go-side implementation backing an exposed function: it
// receives already-converted-to-native arguments and returns a native
// result, or an error (including a *BridgeException on foreign failure).
type NativeFunc func(ctx context.Context, args []*values.Value) (*values.Value, error)

// FunctionFlags are the per-function registration flags from expose_function
// (spec §4.3/§4.10).
type FunctionFlags struct {
	// Pure functions are eligible for C10's call cache: calling them twice
	// with identical arguments within the cache TTL returns the cached
	// result without invoking the bridge again (spec testable property S3).
	Pure bool
}

// ExposedFunction is one registered callable record (spec §3/§4.3).
type ExposedFunction struct {
	Name       string
	Ptr        NativeFunc
	Signature  *values.Signature
	SourceLang string
	Flags      FunctionFlags
}
