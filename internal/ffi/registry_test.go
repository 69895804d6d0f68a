package ffi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinexus/polycall-core/internal/perf"
	"github.com/obinexus/polycall-core/internal/values"
)

// identityBridge is a same-representation in-process bridge: conversions
// are no-ops and Dispatch directly invokes the exposed native function.
type identityBridge struct {
	caps          BridgeCapabilities
	dispatches    int
	dispatchErr   error
	initializeErr error
}

func (b *identityBridge) Initialize(ctx context.Context) error { return b.initializeErr }
func (b *identityBridge) Capabilities() BridgeCapabilities      { return b.caps }
func (b *identityBridge) ConvertFromNative(v *values.Value) (*values.Value, error) {
	return v, nil
}
func (b *identityBridge) ConvertToNative(v *values.Value) (*values.Value, error) {
	return v, nil
}
func (b *identityBridge) Dispatch(ctx context.Context, fn *ExposedFunction, args []*values.Value) (*values.Value, error) {
	b.dispatches++
	if b.dispatchErr != nil {
		return nil, b.dispatchErr
	}
	return fn.Ptr(ctx, args)
}

func addSignature(t *testing.T) *values.Signature {
	t.Helper()
	sig, err := values.NewSignature(values.KindI32, nil, []values.Param{
		{Name: "a", Kind: values.KindI32},
		{Name: "b", Kind: values.KindI32},
	}, false)
	require.NoError(t, err)
	return sig
}

func i32(t *testing.T, n int64) *values.Value {
	t.Helper()
	v, err := values.New(values.KindI32, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetInt64(n))
	return v
}

func addFunc(ctx context.Context, args []*values.Value) (*values.Value, error) {
	a, _ := args[0].Int64()
	b, _ := args[1].Int64()
	v, err := values.New(values.KindI32, nil)
	if err != nil {
		return nil, err
	}
	if err := v.SetInt64(a + b); err != nil {
		return nil, err
	}
	return v, nil
}

func newRegistryWithNative(t *testing.T) (*Registry, *identityBridge, *perf.Manager) {
	t.Helper()
	bridge := &identityBridge{caps: BridgeCapabilities{ThreadSafe: true}}
	pm := perf.NewManager(perf.Config{CallCacheTTL: 0}, nil)
	r := NewRegistry(Config{IsolationLevel: IsolationNone}, nil, pm)
	require.NoError(t, r.RegisterLanguage(context.Background(), "native", bridge))
	return r, bridge, pm
}

func TestRegisterLanguageDuplicateFails(t *testing.T) {
	r, _, _ := newRegistryWithNative(t)
	err := r.RegisterLanguage(context.Background(), "native", &identityBridge{})
	assert.Error(t, err)
}

func TestRegisterLanguageInitializeFailureRetainsNoState(t *testing.T) {
	r := NewRegistry(Config{}, nil, nil)
	bridge := &identityBridge{initializeErr: assertErr{}}
	err := r.RegisterLanguage(context.Background(), "broken", bridge)
	assert.Error(t, err)

	// a second attempt with a working bridge must succeed, proving no
	// partial state was retained from the failed registration.
	ok := &identityBridge{}
	assert.NoError(t, r.RegisterLanguage(context.Background(), "broken", ok))
}

type assertErr struct{}

func (assertErr) Error() string { return "init failed" }

func TestExposeFunctionUnknownLanguageFails(t *testing.T) {
	r := NewRegistry(Config{}, nil, nil)
	err := r.ExposeFunction("add", addFunc, addSignature(t), "native", FunctionFlags{})
	assert.Error(t, err)
}

func TestCallFunctionNotFound(t *testing.T) {
	r, _, _ := newRegistryWithNative(t)
	_, err := r.CallFunction(context.Background(), "missing", nil, "native")
	assert.Error(t, err)
}

func TestCallFunctionIncompatibleArgsRejected(t *testing.T) {
	r, _, _ := newRegistryWithNative(t)
	require.NoError(t, r.ExposeFunction("add", addFunc, addSignature(t), "native", FunctionFlags{}))

	arg := func() *values.Value {
		v, _ := values.New(values.KindString, nil)
		return v
	}()
	_, err := r.CallFunction(context.Background(), "add", []*values.Value{arg, arg}, "native")
	assert.Error(t, err)
}

func TestCallFunctionSucceedsSameLanguage(t *testing.T) {
	r, bridge, _ := newRegistryWithNative(t)
	require.NoError(t, r.ExposeFunction("add", addFunc, addSignature(t), "native", FunctionFlags{}))

	result, err := r.CallFunction(context.Background(), "add", []*values.Value{i32(t, 2), i32(t, 3)}, "native")
	require.NoError(t, err)
	got, err := result.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, 1, bridge.dispatches)
}

func TestCallFunctionPureResultIsCachedAcrossCalls(t *testing.T) {
	bridge := &identityBridge{caps: BridgeCapabilities{ThreadSafe: true}}
	pm := perf.NewManager(perf.Config{CallCacheTTL: time.Minute}, nil)
	r := NewRegistry(Config{}, nil, pm)
	require.NoError(t, r.RegisterLanguage(context.Background(), "native", bridge))
	require.NoError(t, r.ExposeFunction("add", addFunc, addSignature(t), "native", FunctionFlags{Pure: true}))

	_, err := r.CallFunction(context.Background(), "add", []*values.Value{i32(t, 2), i32(t, 3)}, "native")
	require.NoError(t, err)
	result, err := r.CallFunction(context.Background(), "add", []*values.Value{i32(t, 2), i32(t, 3)}, "native")
	require.NoError(t, err)

	got, err := result.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)
	assert.Equal(t, 1, bridge.dispatches, "second pure call must be served from cache, not the bridge")
	assert.Equal(t, uint64(1), r.CallCount())
}

func TestCallFunctionPermissionDeniedWithoutSession(t *testing.T) {
	bridge := &identityBridge{caps: BridgeCapabilities{ThreadSafe: true}}
	pm := perf.NewManager(perf.Config{}, nil)
	r := NewRegistry(Config{IsolationLevel: IsolationStrict}, nil, pm)
	require.NoError(t, r.RegisterLanguage(context.Background(), "native", bridge))
	require.NoError(t, r.ExposeFunction("add", addFunc, addSignature(t), "native", FunctionFlags{}))

	_, err := r.CallFunction(context.Background(), "add", []*values.Value{i32(t, 2), i32(t, 3)}, "native")
	assert.Error(t, err)
}

type fakeSecurity struct {
	perms map[string]struct{}
}

func (f fakeSecurity) EffectivePermissions() (map[string]struct{}, error) { return f.perms, nil }

func TestCallFunctionPermissionGrantedBySession(t *testing.T) {
	bridge := &identityBridge{caps: BridgeCapabilities{ThreadSafe: true}}
	pm := perf.NewManager(perf.Config{}, nil)
	sec := fakeSecurity{perms: map[string]struct{}{"native": {}}}
	r := NewRegistry(Config{IsolationLevel: IsolationStrict}, sec, pm)
	require.NoError(t, r.RegisterLanguage(context.Background(), "native", bridge))
	require.NoError(t, r.ExposeFunction("add", addFunc, addSignature(t), "native", FunctionFlags{}))

	_, err := r.CallFunction(context.Background(), "add", []*values.Value{i32(t, 2), i32(t, 3)}, "native")
	assert.NoError(t, err)
}

func TestCallFunctionForeignExceptionTranslated(t *testing.T) {
	bridge := &identityBridge{caps: BridgeCapabilities{ThreadSafe: true}, dispatchErr: NewBridgeException("native", "boom")}
	pm := perf.NewManager(perf.Config{}, nil)
	r := NewRegistry(Config{}, nil, pm)
	require.NoError(t, r.RegisterLanguage(context.Background(), "native", bridge))
	require.NoError(t, r.ExposeFunction("add", addFunc, addSignature(t), "native", FunctionFlags{}))

	_, err := r.CallFunction(context.Background(), "add", []*values.Value{i32(t, 2), i32(t, 3)}, "native")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
