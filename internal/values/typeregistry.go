package values

import (
	"sync"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// Codec is a user-tagged (de)serializer pair for KindUser values, supplied
// by whichever language bridge owns that tag.
type Codec struct {
	Serialize   func(v *Value) ([]byte, error)
	Deserialize func(data []byte) (*Value, error)
}

// TypeRegistry holds the set of named types known to the runtime, keyed by
// user tag, along with their codecs. Registration is idempotent for an
// identical descriptor and rejected on mismatch (spec §3: "re-registering
// an identical type is a no-op; re-registering a conflicting one fails").
type TypeRegistry struct {
	mu     sync.RWMutex
	types  map[string]*TypeDescriptor
	codecs map[string]Codec
}

// NewTypeRegistry creates an empty TypeRegistry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:  make(map[string]*TypeDescriptor),
		codecs: make(map[string]Codec),
	}
}

// RegisterType installs typ under tag with the given codec. A second
// registration under the same tag succeeds silently if typ.Equal matches
// the existing entry, and fails with already-exists otherwise.
func (r *TypeRegistry) RegisterType(tag string, typ *TypeDescriptor, codec Codec) error {
	if tag == "" {
		return corectx.New("values", corectx.CodeInvalidParameter, "type tag must not be empty")
	}
	if err := typ.Validate(); err != nil {
		return err
	}
	if codec.Serialize == nil || codec.Deserialize == nil {
		return corectx.New("values", corectx.CodeInvalidParameter, "codec must supply both Serialize and Deserialize").WithContext(tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.types[tag]; ok {
		if existing.Equal(typ) {
			return nil
		}
		return corectx.New("values", corectx.CodeAlreadyExists, "conflicting type registered under tag").WithContext(tag)
	}
	r.types[tag] = typ
	r.codecs[tag] = codec
	return nil
}

// Lookup returns the type descriptor registered under tag.
func (r *TypeRegistry) Lookup(tag string) (*TypeDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typ, ok := r.types[tag]
	if !ok {
		return nil, corectx.New("values", corectx.CodeNotFound, "unregistered type tag").WithContext(tag)
	}
	return typ, nil
}

// Codec returns the codec registered under tag.
func (r *TypeRegistry) Codec(tag string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[tag]
	if !ok {
		return Codec{}, corectx.New("values", corectx.CodeNotFound, "unregistered type tag").WithContext(tag)
	}
	return c, nil
}

// Unregister removes tag, if present.
func (r *TypeRegistry) Unregister(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.types, tag)
	delete(r.codecs, tag)
}

// Tags returns all currently registered user tags, in unspecified order.
func (r *TypeRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.types))
	for t := range r.types {
		tags = append(tags, t)
	}
	return tags
}
