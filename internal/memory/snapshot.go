package memory

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/obinexus/polycall-core/internal/corectx"
	"github.com/obinexus/polycall-core/internal/logger"
)

// snapshotVersion is the structural version tag prepended to every
// persisted snapshot blob, ahead of its checksum.
const snapshotVersion byte = 1

// wireRegion is the on-disk shape of a Region, decoupled from the runtime
// struct so pool-internal fields never leak into a snapshot.
type wireRegion struct {
	ID          uuid.UUID
	Addr        Addr
	Size        uint32
	Owner       string
	Permissions Perm
	Flags       ShareFlags
	RefCount    int32
	Offset      uint32
	Hash        [32]byte // content hash at the moment this snapshot was taken
}

// Store persists Bridge snapshots keyed by snapshot id, backed by BadgerDB
// (teacher idiom: one key per record, db.Update/db.View transactions).
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) a badger-backed snapshot store at dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, corectx.NewWithCause("memory", corectx.CodeInternal, "failed to open snapshot store", err)
	}
	return &Store{db: db}, nil
}

// Close releases the store's underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func snapshotKey(id uuid.UUID) []byte {
	return append([]byte("memory:snapshot:"), id[:]...)
}

// Snapshot captures the Bridge's current descriptor table and persists it
// under a new id, returning that id.
func (b *Bridge) Snapshot(store *Store) (uuid.UUID, error) {
	b.mu.Lock()
	regions := make([]wireRegion, 0, len(b.byAddr))
	for addr, r := range b.byAddr {
		hash := computeHash(b.pool.payload(b.offsets[addr], r.Size))
		r.Hash = hash
		regions = append(regions, wireRegion{
			ID: r.ID, Addr: r.Addr, Size: r.Size, Owner: r.Owner,
			Permissions: r.Permissions, Flags: r.Flags, RefCount: r.RefCount,
			Offset: b.offsets[addr], Hash: hash,
		})
	}
	b.mu.Unlock()

	payload, err := json.Marshal(regions)
	if err != nil {
		return uuid.Nil, corectx.NewWithCause("memory", corectx.CodeInternal, "failed to encode snapshot", err)
	}

	sum := sha256.Sum256(payload)
	blob := make([]byte, 0, 1+4+len(payload))
	blob = append(blob, snapshotVersion)
	checksumPrefix := make([]byte, 4)
	binary.LittleEndian.PutUint32(checksumPrefix, crc32ish(sum))
	blob = append(blob, checksumPrefix...)
	blob = append(blob, payload...)

	id := uuid.New()
	err = store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(id), blob)
	})
	if err != nil {
		return uuid.Nil, corectx.NewWithCause("memory", corectx.CodeInternal, "failed to persist snapshot", err)
	}
	logger.Debug("memory snapshot captured", logger.Component("memory"))
	return id, nil
}

// Restore replaces the Bridge's descriptor table with the snapshot saved
// under id, rejecting the restore if any region's content hash has changed
// since the snapshot was taken (spec §4.2 integrity check).
func (b *Bridge) Restore(store *Store, id uuid.UUID) error {
	var blob []byte
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(id))
		if err == badger.ErrKeyNotFound {
			return corectx.New("memory", corectx.CodeNotFound, "unknown snapshot id")
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			blob = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return err
	}
	if len(blob) < 5 {
		return corectx.New("memory", corectx.CodeIntegrityCheckFailed, "truncated snapshot blob")
	}
	if blob[0] != snapshotVersion {
		return corectx.New("memory", corectx.CodeIntegrityCheckFailed, fmt.Sprintf("unsupported snapshot version %d", blob[0]))
	}
	wantChecksum := binary.LittleEndian.Uint32(blob[1:5])
	payload := blob[5:]
	gotChecksum := crc32ish(sha256.Sum256(payload))
	if wantChecksum != gotChecksum {
		return corectx.New("memory", corectx.CodeChecksumMismatch, "snapshot checksum mismatch")
	}

	var regions []wireRegion
	if err := json.Unmarshal(payload, &regions); err != nil {
		return corectx.NewWithCause("memory", corectx.CodeIntegrityCheckFailed, "failed to decode snapshot", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, wr := range regions {
		live, ok := b.byAddr[wr.Addr]
		if !ok {
			continue // region freed since snapshot; nothing to check
		}
		currentHash := computeHash(b.pool.payload(b.offsets[wr.Addr], live.Size))
		if currentHash != wr.Hash {
			return corectx.New("memory", corectx.CodeIntegrityCheckFailed, "region content changed since snapshot").WithContext(wr.ID.String())
		}
	}

	b.byAddr = make(map[Addr]*Region, len(regions))
	b.offsets = make(map[Addr]uint32, len(regions))
	for _, wr := range regions {
		b.byAddr[wr.Addr] = &Region{
			ID: wr.ID, Addr: wr.Addr, Size: wr.Size, Owner: wr.Owner,
			Permissions: wr.Permissions, Flags: wr.Flags, RefCount: wr.RefCount,
			Hash: wr.Hash,
		}
		b.offsets[wr.Addr] = wr.Offset
	}
	return nil
}

// crc32ish folds a sha256 sum into a 32-bit integrity tag for the
// snapshot's fixed-width checksum prefix.
func crc32ish(sum [32]byte) uint32 {
	var v uint32
	for i := 0; i < len(sum); i += 4 {
		v ^= binary.LittleEndian.Uint32(sum[i : i+4])
	}
	return v
}
