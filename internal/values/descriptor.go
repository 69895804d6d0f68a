package values

import "github.com/obinexus/polycall-core/internal/corectx"

// FieldDescriptor describes one field of a struct-kind TypeDescriptor.
type FieldDescriptor struct {
	Name   string
	Type   *TypeDescriptor
	Offset uint32
}

// TypeDescriptor is the canonical type metadata attached to every Value:
// name, size, alignment, and kind-specific detail (spec §3).
type TypeDescriptor struct {
	Name  string
	Size  uint32
	Align uint32
	Kind  Kind

	// Struct kind
	Fields []FieldDescriptor

	// Array kind
	ElemType  *TypeDescriptor
	ElemCount uint32

	// Callback kind
	ReturnType *TypeDescriptor
	ParamTypes []*TypeDescriptor

	// User kind
	UserTag string
}

// Validate checks the descriptor's structural invariants (spec §3): kind
// agreement plus, for struct kinds, monotonically non-decreasing field
// offsets.
func (d *TypeDescriptor) Validate() error {
	if d == nil {
		return corectx.New("values", corectx.CodeInvalidParameter, "nil type descriptor")
	}
	switch d.Kind {
	case KindStruct:
		var prev uint32
		for i, f := range d.Fields {
			if i > 0 && f.Offset < prev {
				return corectx.New("values", corectx.CodeInvalidParameter,
					"struct field offsets must be monotonically non-decreasing").
					WithContext(d.Name)
			}
			prev = f.Offset
		}
	case KindArray:
		if d.ElemType == nil {
			return corectx.New("values", corectx.CodeInvalidParameter, "array descriptor missing element type")
		}
	case KindCallback:
		if d.ReturnType == nil {
			return corectx.New("values", corectx.CodeInvalidParameter, "callback descriptor missing return type")
		}
	case KindUser:
		if d.UserTag == "" {
			return corectx.New("values", corectx.CodeInvalidParameter, "user descriptor missing tag")
		}
	}
	return nil
}

// Equal reports whether two descriptors describe the same type for the
// purposes of idempotent re-registration (name, size, alignment, kind).
func (d *TypeDescriptor) Equal(o *TypeDescriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Name == o.Name && d.Size == o.Size && d.Align == o.Align && d.Kind == o.Kind
}
