// Package perf implements the performance manager (component C10): an
// advisory call cache, a type-conversion cache, a fixed-capacity trace
// ring, and the Prometheus counters the rest of the runtime reports
// through. None of these caches participate in correctness — every
// operation they accelerate must still produce the same result without
// them.
package perf

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"
)

// Fingerprint identifies one memoizable call: the function name plus the
// serialized argument bytes, hashed together (spec §4.10: "Call cache
// keyed by hash(function_name, arg_bytes)").
type Fingerprint [sha256.Size]byte

// NewFingerprint hashes name and argBytes into a Fingerprint.
func NewFingerprint(name string, argBytes []byte) Fingerprint {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0}) // separator, so "ab"+"c" != "a"+"bc"
	h.Write(argBytes)
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

type callEntry struct {
	result    []byte
	expiresAt time.Time
}

// CallCache memoizes pure function calls for a configured TTL. Eviction is
// lazy: a hit past TTL is treated as a miss and the stale entry is
// displaced in place, mirroring the teacher's LRU cache's "evict on next
// access, not on a background sweep" posture (`pkg/cache/eviction.go`).
type CallCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[Fingerprint]callEntry
	metrics *cacheMetrics
}

// NewCallCache creates a CallCache with the given TTL. A zero TTL disables
// caching: Get never hits and Put is a no-op.
func NewCallCache(ttl time.Duration, metrics *cacheMetrics) *CallCache {
	return &CallCache{ttl: ttl, entries: make(map[Fingerprint]callEntry), metrics: metrics}
}

// Get returns the cached result for fp if present and unexpired as of now.
func (c *CallCache) Get(fp Fingerprint, now time.Time) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		c.metrics.observeMiss("call")
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(c.entries, fp)
		c.metrics.observeMiss("call")
		return nil, false
	}
	c.metrics.observeHit("call")
	return e.result, true
}

// Put stores result under fp with an expiry of now+ttl.
func (c *CallCache) Put(fp Fingerprint, result []byte, now time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = callEntry{result: result, expiresAt: now.Add(c.ttl)}
}

// Len reports the number of entries currently stored, including any not
// yet lazily evicted past their TTL.
func (c *CallCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ConversionKey identifies a registered type-conversion function by the
// (source, destination) type id pair (spec §4.10).
type ConversionKey struct {
	SrcTypeID string
	DstTypeID string
}

// ConversionFunc converts a value's raw byte representation from src to
// dst; the actual decode/encode semantics live in the caller's domain.
type ConversionFunc func(src []byte) ([]byte, error)

// ConversionCache maps a (src_type_id, dst_type_id) pair to a converter
// function pointer, avoiding repeated reflection/lookup work on the hot
// path of a cross-language call.
type ConversionCache struct {
	mu      sync.RWMutex
	fns     map[ConversionKey]ConversionFunc
	metrics *cacheMetrics
}

// NewConversionCache creates an empty ConversionCache.
func NewConversionCache(metrics *cacheMetrics) *ConversionCache {
	return &ConversionCache{fns: make(map[ConversionKey]ConversionFunc), metrics: metrics}
}

// Register installs fn for key, replacing any prior registration.
func (c *ConversionCache) Register(key ConversionKey, fn ConversionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns[key] = fn
}

// Lookup returns the registered converter for key, if any.
func (c *ConversionCache) Lookup(key ConversionKey) (ConversionFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.fns[key]
	if ok {
		c.metrics.observeHit("conversion")
	} else {
		c.metrics.observeMiss("conversion")
	}
	return fn, ok
}

// fingerprintUint64 is a small helper used by callers that want a
// fixed-width sortable key instead of the full Fingerprint, e.g. for
// trace-ring correlation ids.
func fingerprintUint64(fp Fingerprint) uint64 {
	return binary.BigEndian.Uint64(fp[:8])
}
