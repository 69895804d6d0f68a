package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/obinexus/polycall-core/internal/corectx"
	"github.com/obinexus/polycall-core/internal/logger"
)

// GCCallback is invoked when a region owned by language is about to be
// freed via the auto-free policy.
type GCCallback func(owner string, user any)

type gcEntry struct {
	cb   GCCallback
	user any
}

// Bridge is the memory bridge runtime (C2): one pool, one ownership
// registry, one lock guarding both (spec §5: "C2 memory bridge holds one
// lock guarding the ownership registry and reference counter").
type Bridge struct {
	mu        sync.Mutex
	pool      *pool
	byAddr    map[Addr]*Region
	offsets   map[Addr]uint32 // region addr -> backing pool offset
	callbacks map[string][]gcEntry
	nextAddr  Addr
}

// New creates a Bridge with a pool of the given capacity.
func New(poolCapacity uint32) *Bridge {
	return &Bridge{
		pool:      newPool(poolCapacity),
		byAddr:    make(map[Addr]*Region),
		offsets:   make(map[Addr]uint32),
		callbacks: make(map[string][]gcEntry),
		nextAddr:  1,
	}
}

// validateFlags enforces spec §3's flag invariant independent of any
// existing region: `marked` implies `in-gc` for the owning language.
func validateFlags(flags ShareFlags) error {
	if flags.has(FlagMarked) && !flags.has(FlagInGC) {
		return corectx.New("memory", corectx.CodeInvalidParameter, "marked requires in-gc")
	}
	return nil
}

// AllocShared allocates size bytes from the pool under owner, returning the
// new region's address token.
func (b *Bridge) AllocShared(size uint32, owner string, flags ShareFlags) (Addr, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validateFlags(flags); err != nil {
		return 0, err
	}

	offset, err := b.pool.alloc(size, flags.has(FlagZeroInit))
	if err != nil {
		return 0, err
	}
	addr := b.nextAddr
	b.nextAddr++

	b.byAddr[addr] = &Region{
		ID:          uuid.New(),
		Addr:        addr,
		Size:        size,
		Owner:       owner,
		Permissions: PermRead | PermWrite,
		Flags:       flags,
		RefCount:    1,
	}
	if flags.has(FlagReadOnly) {
		b.byAddr[addr].Permissions &^= PermWrite
	}
	b.offsets[addr] = offset
	return addr, nil
}

// FreeShared releases the allocation at addr.
func (b *Bridge) FreeShared(addr Addr, lang string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byAddr[addr]; !ok {
		return corectx.New("memory", corectx.CodeNotFound, "unknown region").WithContext(lang)
	}
	offset, ok := b.offsets[addr]
	if !ok {
		return corectx.New("memory", corectx.CodeInternal, "missing offset tracking for region")
	}
	if err := b.pool.free(offset); err != nil {
		return err
	}
	delete(b.byAddr, addr)
	delete(b.offsets, addr)
	logger.Debug("freed shared region", logger.Component("memory"))
	return nil
}

// Share implements the share() contract: creates or finds a region and
// applies the requested policy.
func (b *Bridge) Share(addr Addr, size uint32, from, to string, flags ShareFlags) (*Region, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validateFlags(flags); err != nil {
		return nil, err
	}
	if flags.has(FlagIsolated) {
		return nil, corectx.New("memory", corectx.CodePermissionDenied, "isolated regions cannot be shared").WithContext(from)
	}

	existing, ok := b.byAddr[addr]
	if ok {
		if existing.Flags.has(FlagIsolated) {
			return nil, corectx.New("memory", corectx.CodePermissionDenied, "isolated regions cannot be shared").WithContext(from)
		}
		// copy/transfer/reference select this call's policy rather than
		// describe the region, so only the remaining flags must agree.
		const policy = FlagCopy | FlagTransfer | FlagReference
		if existing.Flags&^policy != flags&^policy {
			return nil, corectx.New("memory", corectx.CodeAlreadyExists, "already-shared-incompatible")
		}
		switch {
		case flags.has(FlagTransfer):
			if existing.Owner != from || existing.RefCount != 1 {
				return nil, corectx.New("memory", corectx.CodePermissionDenied, "transfer requires sole ownership by source")
			}
			existing.Owner = to
		case flags.has(FlagReference):
			existing.RefCount++
		}
		if flags.has(FlagReadOnly) {
			existing.Permissions &^= PermWrite
		}
		return existing, nil
	}

	// copy policy (default when no existing descriptor): fresh region.
	offset, err := b.pool.alloc(size, false)
	if err != nil {
		return nil, err
	}
	r := &Region{
		ID:          uuid.New(),
		Addr:        addr,
		Size:        size,
		Owner:       to,
		Permissions: PermRead | PermWrite,
		Flags:       flags,
		RefCount:    1,
	}
	if flags.has(FlagReadOnly) {
		r.Permissions &^= PermWrite
	}
	b.byAddr[addr] = r
	b.offsets[addr] = offset
	return r, nil
}

// Acquire verifies perms against the region and increments its refcount.
func (b *Bridge) Acquire(addr Addr, lang string, perms Perm) (*Region, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.byAddr[addr]
	if !ok {
		return nil, corectx.New("memory", corectx.CodeNotFound, "unknown region").WithContext(lang)
	}
	if r.Flags.has(FlagIsolated) && lang != r.Owner {
		return nil, corectx.New("memory", corectx.CodePermissionDenied, "isolated regions cannot be shared").WithContext(lang)
	}
	if !perms.Subset(r.Permissions) {
		return nil, corectx.New("memory", corectx.CodePermissionDenied, "requested permissions exceed region grant").WithContext(lang)
	}
	r.RefCount++
	return r, nil
}

// Release decrements the region's refcount, freeing it at zero unless
// persistent; auto-free additionally fans out GC callbacks for the owner.
func (b *Bridge) Release(addr Addr, lang string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.byAddr[addr]
	if !ok {
		return corectx.New("memory", corectx.CodeNotFound, "unknown region").WithContext(lang)
	}
	r.RefCount--
	if r.RefCount < 0 {
		return corectx.New("memory", corectx.CodeInternal, "refcount underflow").WithContext(lang)
	}
	if r.RefCount > 0 || r.Flags.has(FlagPersistent) {
		return nil
	}

	if r.Flags.has(FlagAutoFree) {
		b.fireGC(r.Owner)
	}
	offset := b.offsets[addr]
	if err := b.pool.free(offset); err != nil {
		return err
	}
	delete(b.byAddr, addr)
	delete(b.offsets, addr)
	return nil
}

// RegisterGCCallback appends cb to language's callback list. Multiple
// callbacks per language are allowed and invoked in registration order.
func (b *Bridge) RegisterGCCallback(language string, cb GCCallback, user any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks[language] = append(b.callbacks[language], gcEntry{cb: cb, user: user})
}

func (b *Bridge) fireGC(owner string) {
	for _, entry := range b.callbacks[owner] {
		entry.cb(owner, entry.user)
	}
}

// Used reports the pool's currently allocated bytes.
func (b *Bridge) Used() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool.used
}

// Capacity reports the pool's total byte capacity.
func (b *Bridge) Capacity() uint32 {
	return b.pool.capacity
}
