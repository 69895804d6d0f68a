package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCodec() Codec {
	return Codec{
		Serialize:   func(v *Value) ([]byte, error) { return nil, nil },
		Deserialize: func(data []byte) (*Value, error) { return nil, nil },
	}
}

func TestRegisterTypeAndLookup(t *testing.T) {
	r := NewTypeRegistry()
	typ := &TypeDescriptor{Name: "Point", Size: 8, Align: 4, Kind: KindUser, UserTag: "point"}

	require.NoError(t, r.RegisterType("point", typ, fakeCodec()))

	got, err := r.Lookup("point")
	require.NoError(t, err)
	assert.Same(t, typ, got)

	_, err = r.Codec("point")
	require.NoError(t, err)
}

func TestRegisterTypeIdempotentOnIdenticalDescriptor(t *testing.T) {
	r := NewTypeRegistry()
	typ1 := &TypeDescriptor{Name: "Point", Size: 8, Align: 4, Kind: KindUser, UserTag: "point"}
	typ2 := &TypeDescriptor{Name: "Point", Size: 8, Align: 4, Kind: KindUser, UserTag: "point"}

	require.NoError(t, r.RegisterType("point", typ1, fakeCodec()))
	require.NoError(t, r.RegisterType("point", typ2, fakeCodec()))
}

func TestRegisterTypeConflictFails(t *testing.T) {
	r := NewTypeRegistry()
	typ1 := &TypeDescriptor{Name: "Point", Size: 8, Align: 4, Kind: KindUser, UserTag: "point"}
	typ2 := &TypeDescriptor{Name: "Point", Size: 16, Align: 4, Kind: KindUser, UserTag: "point"}

	require.NoError(t, r.RegisterType("point", typ1, fakeCodec()))
	assert.Error(t, r.RegisterType("point", typ2, fakeCodec()))
}

func TestRegisterTypeRequiresBothCodecFuncs(t *testing.T) {
	r := NewTypeRegistry()
	typ := &TypeDescriptor{Kind: KindUser, UserTag: "x"}
	err := r.RegisterType("x", typ, Codec{Serialize: func(v *Value) ([]byte, error) { return nil, nil }})
	require.Error(t, err)
}

func TestLookupMissingTag(t *testing.T) {
	r := NewTypeRegistry()
	_, err := r.Lookup("nope")
	assert.Error(t, err)
}

func TestUnregisterAndTags(t *testing.T) {
	r := NewTypeRegistry()
	typ := &TypeDescriptor{Kind: KindUser, UserTag: "a"}
	require.NoError(t, r.RegisterType("a", typ, fakeCodec()))

	assert.Equal(t, []string{"a"}, r.Tags())
	r.Unregister("a")
	assert.Empty(t, r.Tags())
}
