package memory

import (
	"github.com/obinexus/polycall-core/internal/corectx"
)

// blockMagic marks a live block header; corruption (bad magic) is a fatal
// integrity failure (spec §4.2).
const blockMagic = 0x504C4D42 // "PLMB"

const minBlockSize = 32

// block is a headered allocation inside the pool's backing arena. size is
// the usable payload size (excluding the header); free marks it as
// available for reuse.
type block struct {
	magic  uint32
	offset uint32 // offset of payload within pool.arena
	size   uint32
	free   bool
}

// pool is a first-fit, splitting allocator over a fixed backing arena —
// the runtime's "headered blocks with a free list" (spec §4.2). Not
// thread-safe on its own; callers (Bridge) serialize access.
type pool struct {
	arena    []byte
	capacity uint32
	used     uint32
	blocks   []*block // ordered by offset
}

func newPool(capacity uint32) *pool {
	return &pool{
		arena:    make([]byte, capacity),
		capacity: capacity,
		blocks:   []*block{{magic: blockMagic, offset: 0, size: capacity, free: true}},
	}
}

// alloc reserves size bytes, first-fit, splitting the chosen free block
// when the remainder is at least minBlockSize. zeroInit zeroes the payload.
func (p *pool) alloc(size uint32, zeroInit bool) (uint32, error) {
	if size == 0 {
		return 0, corectx.New("memory", corectx.CodeInvalidParameter, "alloc size must be non-zero")
	}
	for i, b := range p.blocks {
		if !b.free || b.size < size {
			continue
		}
		if b.magic != blockMagic {
			return 0, corectx.New("memory", corectx.CodeIntegrityCheckFailed, "corrupted block header")
		}
		remainder := b.size - size
		if remainder >= minBlockSize {
			newBlock := &block{magic: blockMagic, offset: b.offset + size, size: remainder, free: true}
			b.size = size
			rest := append([]*block{newBlock}, p.blocks[i+1:]...)
			p.blocks = append(p.blocks[:i+1], rest...)
		}
		b.free = false
		p.used += b.size
		if zeroInit {
			for j := b.offset; j < b.offset+b.size; j++ {
				p.arena[j] = 0
			}
		}
		return b.offset, nil
	}
	return 0, corectx.New("memory", corectx.CodeOutOfMemory, "no free block large enough")
}

// free releases the block at offset, merging with adjacent free neighbors.
func (p *pool) free(offset uint32) error {
	for i, b := range p.blocks {
		if b.offset != offset {
			continue
		}
		if b.magic != blockMagic {
			return corectx.New("memory", corectx.CodeIntegrityCheckFailed, "corrupted block header")
		}
		if b.free {
			return corectx.New("memory", corectx.CodeInvalidParameter, "double free")
		}
		b.free = true
		p.used -= b.size

		if i+1 < len(p.blocks) && p.blocks[i+1].free {
			next := p.blocks[i+1]
			b.size += next.size
			p.blocks = append(p.blocks[:i+1], p.blocks[i+2:]...)
		}
		if i > 0 && p.blocks[i-1].free {
			prev := p.blocks[i-1]
			prev.size += b.size
			p.blocks = append(p.blocks[:i], p.blocks[i+1:]...)
		}
		return nil
	}
	return corectx.New("memory", corectx.CodeNotFound, "no allocation at offset")
}

func (p *pool) payload(offset, size uint32) []byte {
	return p.arena[offset : offset+size]
}
