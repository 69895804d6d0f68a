package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUserKindWithoutTag(t *testing.T) {
	_, err := New(KindUser, nil)
	require.Error(t, err)
}

func TestNewRejectsDescriptorKindMismatch(t *testing.T) {
	typ := &TypeDescriptor{Name: "x", Size: 4, Align: 4, Kind: KindI32}
	_, err := New(KindU32, typ)
	require.Error(t, err)
}

func TestInt64RoundTrip(t *testing.T) {
	for _, k := range []Kind{KindU8, KindI8, KindU16, KindI16, KindU32, KindI32, KindU64, KindI64} {
		v, err := New(k, nil)
		require.NoError(t, err)

		require.NoError(t, v.SetInt64(-1))
		got, err := v.Int64()
		require.NoError(t, err)
		if k == KindI8 || k == KindI16 || k == KindI32 || k == KindI64 {
			assert.Equal(t, int64(-1), got, k.String())
		} else {
			// unsigned: -1 truncated to width then zero-extended back
			assert.True(t, got > 0 || k == KindU64, k.String())
		}
	}
}

func TestSetDataSizeMismatch(t *testing.T) {
	v, err := New(KindU32, nil)
	require.NoError(t, err)
	err = v.SetData([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestStringGetDataNulTerminates(t *testing.T) {
	v, err := New(KindString, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetString("hi"))

	data, err := v.GetData()
	require.NoError(t, err)
	assert.Equal(t, []byte("hi\x00"), data)

	s, err := v.String()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
}

func TestFloatRoundTrip(t *testing.T) {
	v, err := New(KindF64, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetFloat64(3.5))
	f, err := v.Float64()
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)
}

func TestBoolRoundTrip(t *testing.T) {
	v, err := New(KindBool, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetBool(true))
	b, err := v.Bool()
	require.NoError(t, err)
	assert.True(t, b)
}

func TestPointerRoundTrip(t *testing.T) {
	v, err := New(KindPointer, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetPointer(0xdead))
	p, err := v.Pointer()
	require.NoError(t, err)
	assert.Equal(t, uintptr(0xdead), p)
}

func TestStructFieldAccessors(t *testing.T) {
	s, err := New(KindStruct, nil)
	require.NoError(t, err)

	f, err := New(KindI32, nil)
	require.NoError(t, err)
	require.NoError(t, f.SetInt64(42))

	require.NoError(t, s.SetField("x", f))
	got, err := s.GetField("x")
	require.NoError(t, err)
	assert.Same(t, f, got)

	_, err = s.GetField("missing")
	require.Error(t, err)
}

func TestArrayElemAccessors(t *testing.T) {
	typ := &TypeDescriptor{Kind: KindArray, ElemType: &TypeDescriptor{Kind: KindI32}, ElemCount: 3}
	a, err := New(KindArray, typ)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())

	e, err := New(KindI32, nil)
	require.NoError(t, err)
	require.NoError(t, a.SetElem(1, e))

	got, err := a.GetElem(1)
	require.NoError(t, err)
	assert.Same(t, e, got)

	_, err = a.GetElem(5)
	require.Error(t, err)
}

func TestDestroyIsIdempotent(t *testing.T) {
	v, err := New(KindString, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetString("x"))
	assert.NotPanics(t, func() {
		v.Destroy()
		v.Destroy()
	})
}

func TestWrongKindAccessorsFail(t *testing.T) {
	v, err := New(KindBool, nil)
	require.NoError(t, err)
	_, err = v.String()
	require.Error(t, err)
	_, err = v.Int64()
	require.Error(t, err)
}
