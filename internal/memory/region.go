// Package memory implements the memory bridge (component C2): a shared
// allocation pool, an ownership registry with reference counting, a
// GC-notification fan-out, and badger-backed snapshot/restore.
package memory

import (
	"crypto/sha256"

	"github.com/google/uuid"
)

// Addr is an opaque handle standing in for a foreign pointer. The pool
// hands these out on alloc; callers treat them as capability tokens, never
// as raw addresses.
type Addr uint64

// Perm is a bitmask of access permissions over a shared region.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExecute
)

// Subset reports whether p is a subset of other (p ⊆ other).
func (p Perm) Subset(other Perm) bool {
	return p&other == p
}

// ShareFlags controls share() policy and region behavior (spec §3: "share
// flags ⊆ {read-only, copy, transfer, reference, temporary, persistent,
// isolated, auto-free, in-gc, marked}").
type ShareFlags uint16

const (
	FlagCopy ShareFlags = 1 << iota
	FlagTransfer
	FlagReference
	FlagReadOnly
	FlagTemporary
	FlagPersistent
	FlagIsolated
	FlagAutoFree
	FlagInGC
	FlagMarked
	FlagZeroInit
)

func (f ShareFlags) has(bit ShareFlags) bool { return f&bit != 0 }

// Region is the ownership descriptor for one shared allocation.
type Region struct {
	ID          uuid.UUID
	Addr        Addr
	Size        uint32
	Owner       string
	Permissions Perm
	Flags       ShareFlags
	RefCount    int32
	Hash        [32]byte // content hash at last snapshot, for integrity checks
}

// computeHash hashes a region's backing bytes for snapshot integrity
// checking (spec §4.2: "restore is rejected if any region has changed hash
// since snapshot").
func computeHash(data []byte) [32]byte {
	return sha256.Sum256(data)
}
