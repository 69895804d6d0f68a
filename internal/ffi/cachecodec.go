package ffi

import "github.com/obinexus/polycall-core/internal/values"

// encodeCachedResult serializes a scalar result's raw bytes for storage in
// C10's call cache. Only scalar kinds with a fixed width round-trip
// through the cache; struct/array/object/callback results are never
// cached (Pure is defined over deterministic scalar-in/scalar-out
// functions in this runtime).
func encodeCachedResult(v *values.Value) ([]byte, bool) {
	if v.Kind.Width() == 0 {
		return nil, false
	}
	data, err := v.GetData()
	if err != nil {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// decodeCachedResult reconstructs a Value of kind from cached raw bytes.
func decodeCachedResult(raw []byte, kind values.Kind) (*values.Value, error) {
	v, err := values.New(kind, nil)
	if err != nil {
		return nil, err
	}
	if err := v.SetData(raw); err != nil {
		return nil, err
	}
	return v, nil
}
