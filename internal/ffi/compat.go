package ffi

import "github.com/obinexus/polycall-core/internal/values"

// isUnsignedInt reports whether k is one of the unsigned integer kinds.
func isUnsignedInt(k values.Kind) bool {
	switch k {
	case values.KindU8, values.KindU16, values.KindU32, values.KindU64:
		return true
	default:
		return false
	}
}

// isSignedInt reports whether k is one of the signed integer kinds.
func isSignedInt(k values.Kind) bool {
	switch k {
	case values.KindI8, values.KindI16, values.KindI32, values.KindI64:
		return true
	default:
		return false
	}
}

// widens reports whether an argument of kind from may be implicitly
// widened to a parameter of kind to: same integer signedness with a
// non-decreasing width, or float32 -> float64. This is the "defined
// numeric widening" spec §4.3 step 2 allows when strict_types is false.
func widens(from, to values.Kind) bool {
	if from == to {
		return true
	}
	if isUnsignedInt(from) && isUnsignedInt(to) {
		return from.Width() <= to.Width()
	}
	if isSignedInt(from) && isSignedInt(to) {
		return from.Width() <= to.Width()
	}
	if from == values.KindF32 && to == values.KindF64 {
		return true
	}
	return false
}

// assignable reports whether an argument of kind argKind may be passed for
// a parameter of kind paramKind, honoring strict (exact-match only) vs.
// non-strict (exact match or numeric widening) mode — spec §4.3 step 2 and
// the `strict_types` configuration knob (spec §6, testable property 8).
func assignable(argKind, paramKind values.Kind, strict bool) bool {
	if argKind == paramKind {
		return true
	}
	if strict {
		return false
	}
	return widens(argKind, paramKind)
}

// arityOK reports whether argc arguments satisfy sig's parameter shape,
// independent of kind compatibility: every non-optional fixed parameter
// must be supplied, optional ones may be omitted only at the tail, and a
// variadic signature accepts any number of trailing arguments beyond its
// fixed prefix. This mirrors values.Signature.CompatibleWith's arity
// reasoning without its stricter exact-kind check, since strict_types is
// resolved separately by assignable.
func arityOK(sig *values.Signature, argc int) bool {
	n := len(sig.Params)
	if sig.Variadic {
		fixed := n - 1
		required := 0
		for i := 0; i < fixed; i++ {
			if !sig.Params[i].Optional {
				required++
			}
		}
		return argc >= required
	}
	required := 0
	for _, p := range sig.Params {
		if !p.Optional {
			required++
		}
	}
	return argc >= required && argc <= n
}
