// Package ffi implements the FFI registry and dispatcher (component C3): a
// language-bridge registry, an exposed-function registry, and the
// call_function marshalling/security/caching pipeline that sits between
// them (spec §4.3).
package ffi

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/obinexus/polycall-core/internal/corectx"
	"github.com/obinexus/polycall-core/internal/perf"
	"github.com/obinexus/polycall-core/internal/telemetry"
	"github.com/obinexus/polycall-core/internal/values"
)

// Config controls the registry's security posture (spec §6).
type Config struct {
	IsolationLevel IsolationLevel
	StrictTypes    bool
}

// Registry holds registered language bridges and exposed functions, and
// implements call_function (spec §4.3). It is read-heavy: many lookups,
// rare registrations (spec §5), so it uses one RWMutex.
type Registry struct {
	cfg Config

	mu        sync.RWMutex
	bridges   map[string]LanguageBridge
	functions map[string]*ExposedFunction
	security  SecurityContext

	bridgeLocks map[string]*sync.Mutex // per-bridge serialization when !ThreadSafe

	perf      *perf.Manager
	callCount uint64
	callMu    sync.Mutex
}

// NewRegistry constructs an empty Registry. security may be nil (no
// attached session; isolation level alone governs default-allow/deny).
// perfManager may be nil to disable call caching and tracing.
func NewRegistry(cfg Config, security SecurityContext, perfManager *perf.Manager) *Registry {
	return &Registry{
		cfg:         cfg,
		bridges:     make(map[string]LanguageBridge),
		functions:   make(map[string]*ExposedFunction),
		security:    security,
		bridgeLocks: make(map[string]*sync.Mutex),
		perf:        perfManager,
	}
}

// RegisterLanguage registers bridge under name and calls its Initialize
// hook. Name must be unique; on Initialize failure no state is retained
// (spec §4.3: "on failure, no state is retained").
func (r *Registry) RegisterLanguage(ctx context.Context, name string, bridge LanguageBridge) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFFIRegister)
	defer span.End()
	span.SetAttributes(telemetry.SourceLanguage(name))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bridges[name]; exists {
		err := corectx.New("ffi", corectx.CodeAlreadyExists, "language already registered").WithContext(name)
		telemetry.RecordError(ctx, err)
		return err
	}
	if err := bridge.Initialize(ctx); err != nil {
		wrapped := corectx.NewWithCause("ffi", corectx.CodeInternal, "bridge initialize failed", err).WithContext(name)
		telemetry.RecordError(ctx, wrapped)
		return wrapped
	}
	r.bridges[name] = bridge
	if !bridge.Capabilities().ThreadSafe {
		r.bridgeLocks[name] = &sync.Mutex{}
	}
	return nil
}

// ExposeFunction registers fn under name, validating its signature against
// the source bridge's capabilities (spec §4.3).
func (r *Registry) ExposeFunction(name string, fnPtr NativeFunc, sig *values.Signature, sourceLang string, flags FunctionFlags) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.functions[name]; exists {
		return corectx.New("ffi", corectx.CodeAlreadyExists, "function already exposed").WithContext(name)
	}
	bridge, ok := r.bridges[sourceLang]
	if !ok {
		return corectx.New("ffi", corectx.CodeNotFound, "source language not registered").WithContext(sourceLang)
	}
	caps := bridge.Capabilities()
	if !caps.supports(sig.Return) {
		return corectx.New("ffi", corectx.CodeInvalidParameter, "bridge does not support return kind").WithContext(sig.Return.String())
	}
	for _, p := range sig.Params {
		if !caps.supports(p.Kind) {
			return corectx.New("ffi", corectx.CodeInvalidParameter, "bridge does not support parameter kind").WithContext(p.Name)
		}
	}

	r.functions[name] = &ExposedFunction{Name: name, Ptr: fnPtr, Signature: sig, SourceLang: sourceLang, Flags: flags}
	return nil
}

// CallFunction executes the call_function algorithm (spec §4.3): lookup,
// assignability check, call-cache consult, permission check, cross-language
// conversion, dispatch, result conversion, exception translation.
func (r *Registry) CallFunction(ctx context.Context, name string, args []*values.Value, targetLang string) (*values.Value, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanFFICall)
	defer span.End()
	span.SetAttributes(telemetry.Function(name), telemetry.TargetLanguage(targetLang))

	start := time.Now()
	result, err := r.callFunction(ctx, name, args, targetLang)
	if err != nil {
		telemetry.RecordError(ctx, err)
		span.SetStatus(codes.Error, err.Error())
	}
	if r.perf != nil && r.perf.TracingEnabled() {
		fp := perf.NewFingerprint(name, argKindsBytes(args))
		r.perf.Trace.RecordCall(name, fp, time.Since(start), err, start)
	}
	return result, err
}

func (r *Registry) callFunction(ctx context.Context, name string, args []*values.Value, targetLang string) (*values.Value, error) {
	r.mu.RLock()
	fn, ok := r.functions[name]
	r.mu.RUnlock()
	if !ok {
		return nil, corectx.New("ffi", corectx.CodeNotFound, "unknown function").WithContext(name)
	}

	argKinds := make([]values.Kind, len(args))
	for i, a := range args {
		argKinds[i] = a.Kind
	}
	if !compatible(fn.Signature, argKinds, r.cfg.StrictTypes) {
		return nil, corectx.New("ffi", corectx.CodeInvalidParameter, "argument kinds incompatible with signature").WithContext(name)
	}

	var fp perf.Fingerprint
	if fn.Flags.Pure && r.perf != nil {
		fp = perf.NewFingerprint(name, argKindsBytes(args))
		if cached, hit := r.perf.Calls.Get(fp, time.Now()); hit {
			telemetry.SetAttributes(ctx, telemetry.CacheHit(true))
			return decodeCachedResult(cached, fn.Signature.Return)
		}
	}

	allowed, err := checkPermission(r.security, r.cfg.IsolationLevel, fn.SourceLang)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, corectx.New("ffi", corectx.CodePermissionDenied, "source language lacks permission").WithContext(fn.SourceLang)
	}

	r.mu.RLock()
	targetBridge, targetOK := r.bridges[targetLang]
	r.mu.RUnlock()
	if !targetOK {
		return nil, corectx.New("ffi", corectx.CodeNotFound, "target language not registered").WithContext(targetLang)
	}

	dispatchArgs := args
	crossLanguage := fn.SourceLang != targetLang
	if crossLanguage {
		converted := make([]*values.Value, len(args))
		for i, a := range args {
			cv, err := targetBridge.ConvertFromNative(a)
			if err != nil {
				return nil, corectx.NewWithCause("ffi", corectx.CodeInvalidParameter, "convert_from_native failed", err)
			}
			converted[i] = cv
		}
		dispatchArgs = converted
	}

	unlock := r.lockBridge(targetLang)
	defer unlock()

	raw, dispatchErr := targetBridge.Dispatch(ctx, fn, dispatchArgs)
	r.incrementCallCount()
	if dispatchErr != nil {
		msg := handleException(dispatchErr)
		return nil, corectx.NewWithCause("ffi", corectx.CodeForeignException, msg, dispatchErr).WithContext(name)
	}

	result, err := targetBridge.ConvertToNative(raw)
	if err != nil {
		return nil, corectx.NewWithCause("ffi", corectx.CodeInvalidParameter, "convert_to_native failed", err)
	}

	if fn.Flags.Pure && r.perf != nil {
		if raw64, ok := encodeCachedResult(result); ok {
			r.perf.Calls.Put(fp, raw64, time.Now())
		}
	}
	return result, nil
}

func (r *Registry) lockBridge(lang string) func() {
	r.mu.RLock()
	lock, ok := r.bridgeLocks[lang]
	r.mu.RUnlock()
	if !ok {
		return func() {}
	}
	lock.Lock()
	return lock.Unlock
}

func (r *Registry) incrementCallCount() {
	r.callMu.Lock()
	r.callCount++
	r.callMu.Unlock()
}

// CallCount returns the number of dispatches that reached a bridge (i.e.
// excluding call-cache hits), advancing monotonically (spec §4.3
// "Observable side effects: call counters advance monotonically").
func (r *Registry) CallCount() uint64 {
	r.callMu.Lock()
	defer r.callMu.Unlock()
	return r.callCount
}

func argKindsBytes(args []*values.Value) []byte {
	b := make([]byte, len(args))
	for i, a := range args {
		b[i] = byte(a.Kind)
		if data, err := a.GetData(); err == nil {
			b = append(b, data...)
		}
	}
	return b
}

func compatible(sig *values.Signature, argKinds []values.Kind, strict bool) bool {
	if !arityOK(sig, len(argKinds)) {
		return false
	}
	n := len(sig.Params)
	if sig.Variadic {
		n--
	}
	for i := 0; i < n && i < len(argKinds); i++ {
		if !assignable(argKinds[i], sig.Params[i].Kind, strict) {
			return false
		}
	}
	if sig.Variadic {
		tail := sig.Params[len(sig.Params)-1].Kind
		for i := n; i < len(argKinds); i++ {
			if !assignable(argKinds[i], tail, strict) {
				return false
			}
		}
	}
	return true
}
