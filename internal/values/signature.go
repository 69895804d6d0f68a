package values

import "github.com/obinexus/polycall-core/internal/corectx"

// Param describes one formal parameter of a function signature.
type Param struct {
	Name     string
	Kind     Kind
	Type     *TypeDescriptor
	Optional bool
}

// Signature is the canonical function signature model (spec §3): a return
// kind/type plus an ordered parameter list, with optional variadic tail.
type Signature struct {
	Return     Kind
	ReturnType *TypeDescriptor
	Params     []Param
	Variadic   bool
}

// NewSignature validates and constructs a Signature. Variadic is only
// meaningful when at least one parameter is declared — a variadic
// signature with zero fixed parameters is rejected, since there would be
// nothing to anchor the variadic tail's position against.
func NewSignature(ret Kind, retType *TypeDescriptor, params []Param, variadic bool) (*Signature, error) {
	if variadic && len(params) == 0 {
		return nil, corectx.New("values", corectx.CodeInvalidParameter,
			"variadic signature requires at least one fixed parameter")
	}
	if retType != nil {
		if err := retType.Validate(); err != nil {
			return nil, err
		}
		if retType.Kind != ret {
			return nil, corectx.New("values", corectx.CodeInvalidParameter,
				"return type descriptor disagrees with return kind")
		}
	}
	for i, p := range params {
		if p.Type != nil {
			if err := p.Type.Validate(); err != nil {
				return nil, err
			}
			if p.Type.Kind != p.Kind {
				return nil, corectx.New("values", corectx.CodeInvalidParameter,
					"parameter type descriptor disagrees with parameter kind").WithContext(p.Name)
			}
		}
		if p.Optional && variadic && i == len(params)-1 {
			return nil, corectx.New("values", corectx.CodeInvalidParameter,
				"the variadic tail parameter cannot also be marked optional")
		}
	}
	return &Signature{Return: ret, ReturnType: retType, Params: append([]Param(nil), params...), Variadic: variadic}, nil
}

// Arity returns the number of fixed (non-variadic-tail) parameters.
func (s *Signature) Arity() int {
	return len(s.Params)
}

// CompatibleWith reports whether a call supplying argKinds would satisfy
// this signature's parameter shape: each fixed parameter position must
// match (optional ones may be omitted only at the tail), and a variadic
// signature accepts any number of trailing arguments of the last
// parameter's kind.
func (s *Signature) CompatibleWith(argKinds []Kind) bool {
	n := len(s.Params)
	if !s.Variadic {
		if len(argKinds) > n {
			return false
		}
		for i, k := range argKinds {
			if k != s.Params[i].Kind {
				return false
			}
		}
		return minRequired(s.Params[len(argKinds):]) == 0
	}

	fixed := s.Params[:n-1]
	if len(argKinds) < len(fixed) {
		for i, k := range argKinds {
			if k != fixed[i].Kind {
				return false
			}
		}
		return minRequired(fixed[len(argKinds):]) == 0
	}
	for i, p := range fixed {
		if argKinds[i] != p.Kind {
			return false
		}
	}
	tailKind := s.Params[n-1].Kind
	for _, k := range argKinds[len(fixed):] {
		if k != tailKind {
			return false
		}
	}
	return true
}

func minRequired(params []Param) int {
	n := 0
	for _, p := range params {
		if !p.Optional {
			n++
		}
	}
	return n
}
