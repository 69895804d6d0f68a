package values

import (
	"encoding/binary"
	"math"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// Value is the canonical tagged-union FFI value (spec §3). The payload
// owned by string/array/object/user kinds is released on Destroy.
type Value struct {
	Kind Kind
	Type *TypeDescriptor

	raw    []byte // scalar payload, little-endian, length == Kind.Width() (or Type.Size for user/pointer overrides)
	str    string
	ptr    uintptr
	fields map[string]*Value
	elems  []*Value
	object any
}

// New allocates a Value of the given kind. Fails with invalid-kind for an
// unknown user tag (i.e. KindUser without a descriptor carrying a UserTag).
func New(kind Kind, typ *TypeDescriptor) (*Value, error) {
	if kind == KindUser && (typ == nil || typ.UserTag == "") {
		return nil, corectx.New("values", corectx.CodeInvalidParameter, "invalid-kind: user value missing tag")
	}
	if typ != nil {
		if err := typ.Validate(); err != nil {
			return nil, err
		}
		if typ.Kind != kind {
			return nil, corectx.New("values", corectx.CodeInvalidParameter, "type descriptor kind disagrees with value kind")
		}
	}

	v := &Value{Kind: kind, Type: typ}
	switch kind {
	case KindStruct:
		v.fields = make(map[string]*Value)
	case KindArray:
		count := uint32(0)
		if typ != nil {
			count = typ.ElemCount
		}
		v.elems = make([]*Value, count)
	default:
		if w := kind.Width(); w > 0 {
			v.raw = make([]byte, w)
		}
	}
	return v, nil
}

// Destroy releases the value's owned payload. Safe to call more than once.
func (v *Value) Destroy() {
	v.raw = nil
	v.str = ""
	v.fields = nil
	v.elems = nil
	v.object = nil
}

func sizeMismatch(got, want int) error {
	return corectx.New("values", corectx.CodeInvalidParameter,
		"invalid-size: expected "+itoa(want)+" bytes, got "+itoa(got))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// SetData copies raw bytes into a scalar-kind value. Size mismatch fails
// with invalid-size.
func (v *Value) SetData(data []byte) error {
	switch v.Kind {
	case KindString, KindStruct, KindArray, KindCallback, KindObject:
		return corectx.New("values", corectx.CodeInvalidParameter, "SetData not valid for kind "+v.Kind.String())
	case KindPointer:
		if len(data) != 8 {
			return sizeMismatch(len(data), 8)
		}
		v.ptr = uintptr(binary.LittleEndian.Uint64(data))
		v.raw = append([]byte(nil), data...)
		return nil
	default:
		w := int(v.Kind.Width())
		if w == 0 && v.Type != nil {
			w = int(v.Type.Size)
		}
		if len(data) != w {
			return sizeMismatch(len(data), w)
		}
		v.raw = append([]byte(nil), data...)
		return nil
	}
}

// GetData returns the value's raw bytes. String kind is NUL-terminated on
// get (a trailing 0x00 byte is appended if not already present).
func (v *Value) GetData() ([]byte, error) {
	switch v.Kind {
	case KindString:
		b := []byte(v.str)
		if len(b) == 0 || b[len(b)-1] != 0 {
			b = append(b, 0)
		}
		return b, nil
	case KindStruct, KindArray, KindCallback, KindObject:
		return nil, corectx.New("values", corectx.CodeInvalidParameter, "GetData not valid for kind "+v.Kind.String())
	default:
		return append([]byte(nil), v.raw...), nil
	}
}

// --- Numeric / bool / pointer convenience accessors ---

// SetInt64 stores n, truncated/sign-extended to the value's declared
// integer width.
func (v *Value) SetInt64(n int64) error {
	if !v.Kind.IsInteger() {
		return corectx.New("values", corectx.CodeInvalidParameter, "SetInt64 requires an integer kind")
	}
	buf := make([]byte, v.Kind.Width())
	switch v.Kind.Width() {
	case 1:
		buf[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(n))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(n))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(n))
	}
	v.raw = buf
	return nil
}

// Int64 reinterprets the raw payload as a signed/unsigned integer according
// to Kind, zero- or sign-extending to 64 bits as appropriate.
func (v *Value) Int64() (int64, error) {
	if !v.Kind.IsInteger() {
		return 0, corectx.New("values", corectx.CodeInvalidParameter, "Int64 requires an integer kind")
	}
	switch v.Kind {
	case KindU8:
		return int64(v.raw[0]), nil
	case KindI8:
		return int64(int8(v.raw[0])), nil
	case KindU16:
		return int64(binary.LittleEndian.Uint16(v.raw)), nil
	case KindI16:
		return int64(int16(binary.LittleEndian.Uint16(v.raw))), nil
	case KindU32:
		return int64(binary.LittleEndian.Uint32(v.raw)), nil
	case KindI32:
		return int64(int32(binary.LittleEndian.Uint32(v.raw))), nil
	case KindU64:
		return int64(binary.LittleEndian.Uint64(v.raw)), nil
	case KindI64:
		return int64(binary.LittleEndian.Uint64(v.raw)), nil
	}
	return 0, corectx.New("values", corectx.CodeInternal, "unreachable integer kind")
}

// SetFloat64 stores f, preserving IEEE-754 bit patterns for the declared
// float width (f32 truncates via float32 conversion).
func (v *Value) SetFloat64(f float64) error {
	switch v.Kind {
	case KindF32:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(f)))
		v.raw = buf
	case KindF64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		v.raw = buf
	default:
		return corectx.New("values", corectx.CodeInvalidParameter, "SetFloat64 requires a float kind")
	}
	return nil
}

// Float64 returns the value's float payload widened to float64.
func (v *Value) Float64() (float64, error) {
	switch v.Kind {
	case KindF32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.raw))), nil
	case KindF64:
		return math.Float64frombits(binary.LittleEndian.Uint64(v.raw)), nil
	default:
		return 0, corectx.New("values", corectx.CodeInvalidParameter, "Float64 requires a float kind")
	}
}

// SetBool stores a boolean payload.
func (v *Value) SetBool(b bool) error {
	if v.Kind != KindBool {
		return corectx.New("values", corectx.CodeInvalidParameter, "SetBool requires KindBool")
	}
	if b {
		v.raw = []byte{1}
	} else {
		v.raw = []byte{0}
	}
	return nil
}

// Bool returns the value's boolean payload.
func (v *Value) Bool() (bool, error) {
	if v.Kind != KindBool {
		return false, corectx.New("values", corectx.CodeInvalidParameter, "Bool requires KindBool")
	}
	return v.raw[0] != 0, nil
}

// SetString stores s as the value's payload (KindString only).
func (v *Value) SetString(s string) error {
	if v.Kind != KindString {
		return corectx.New("values", corectx.CodeInvalidParameter, "SetString requires KindString")
	}
	v.str = s
	return nil
}

// String returns the value's string payload (without the trailing NUL that
// GetData appends).
func (v *Value) String() (string, error) {
	if v.Kind != KindString {
		return "", corectx.New("values", corectx.CodeInvalidParameter, "String requires KindString")
	}
	return v.str, nil
}

// SetPointer stores an opaque address token (KindPointer only).
func (v *Value) SetPointer(addr uintptr) error {
	if v.Kind != KindPointer {
		return corectx.New("values", corectx.CodeInvalidParameter, "SetPointer requires KindPointer")
	}
	v.ptr = addr
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(addr))
	v.raw = buf
	return nil
}

// Pointer returns the value's address token.
func (v *Value) Pointer() (uintptr, error) {
	if v.Kind != KindPointer {
		return 0, corectx.New("values", corectx.CodeInvalidParameter, "Pointer requires KindPointer")
	}
	return v.ptr, nil
}

// --- Struct / array / object composites ---

// SetField sets a named struct field. Fails if the value is not a struct.
func (v *Value) SetField(name string, field *Value) error {
	if v.Kind != KindStruct {
		return corectx.New("values", corectx.CodeInvalidParameter, "SetField requires KindStruct")
	}
	v.fields[name] = field
	return nil
}

// GetField returns a named struct field, or not-found.
func (v *Value) GetField(name string) (*Value, error) {
	if v.Kind != KindStruct {
		return nil, corectx.New("values", corectx.CodeInvalidParameter, "GetField requires KindStruct")
	}
	f, ok := v.fields[name]
	if !ok {
		return nil, corectx.New("values", corectx.CodeNotFound, "struct field not found: "+name)
	}
	return f, nil
}

// SetElem sets the array element at index i.
func (v *Value) SetElem(i int, elem *Value) error {
	if v.Kind != KindArray {
		return corectx.New("values", corectx.CodeInvalidParameter, "SetElem requires KindArray")
	}
	if i < 0 || i >= len(v.elems) {
		return corectx.New("values", corectx.CodeInvalidParameter, "array index out of range")
	}
	v.elems[i] = elem
	return nil
}

// GetElem returns the array element at index i.
func (v *Value) GetElem(i int) (*Value, error) {
	if v.Kind != KindArray {
		return nil, corectx.New("values", corectx.CodeInvalidParameter, "GetElem requires KindArray")
	}
	if i < 0 || i >= len(v.elems) {
		return nil, corectx.New("values", corectx.CodeInvalidParameter, "array index out of range")
	}
	return v.elems[i], nil
}

// Len returns the array's element count.
func (v *Value) Len() int {
	return len(v.elems)
}

// SetObject stores an opaque Go object (KindObject only).
func (v *Value) SetObject(obj any) error {
	if v.Kind != KindObject {
		return corectx.New("values", corectx.CodeInvalidParameter, "SetObject requires KindObject")
	}
	v.object = obj
	return nil
}

// Object returns the value's opaque Go object.
func (v *Value) Object() (any, error) {
	if v.Kind != KindObject {
		return nil, corectx.New("values", corectx.CodeInvalidParameter, "Object requires KindObject")
	}
	return v.object, nil
}
