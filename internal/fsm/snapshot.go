package fsm

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// Snapshot is the captured {current_state_index, timestamp, checksum}
// record from spec §4.4. TimestampUnixNano is stamped by the caller at
// capture time, not by this package (the runtime never calls time.Now()
// internally so that captures stay deterministic under test).
type Snapshot struct {
	CurrentStateIndex int
	TimestampUnixNano int64
	Checksum          uint32
}

// structuralChecksum is a stable hash over states[] and transitions[].
// Topology is frozen once the machine starts (AddState/AddTransition both
// refuse after the first Fire), so this value never changes across a
// machine's operating lifetime — it exists to catch a restore against an
// incompatible (e.g. mismatched-binary) machine instance, not to track
// current_state, which a restore is explicitly meant to be able to change.
func (m *Machine) structuralChecksum() uint32 {
	h := fnv.New32a()
	for _, s := range m.states {
		h.Write([]byte(s.name))
		h.Write([]byte{byte(s.parent)})
		h.Write([]byte{byte(s.inheritance)})
	}
	names := make([]string, 0, len(m.transitions))
	for name := range m.transitions {
		names = append(names, name)
	}
	sortStrings(names)
	for _, name := range names {
		t := m.transitions[name]
		h.Write([]byte(t.name))
		h.Write([]byte(t.from))
		h.Write([]byte(t.to))
	}
	return h.Sum32()
}

// sortStrings is a tiny insertion sort to avoid importing sort for a
// single call site's worth of determinism.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Snapshot captures the machine's current structural checksum and state
// index. timestampUnixNano is supplied by the caller.
func (m *Machine) Snapshot(timestampUnixNano int64) Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		CurrentStateIndex: m.current,
		TimestampUnixNano: timestampUnixNano,
		Checksum:          m.structuralChecksum(),
	}
}

// Restore installs snap.CurrentStateIndex as the machine's current state,
// rejecting the restore with integrity-check-failed unless the machine's
// present structural checksum equals the snapshot's.
func (m *Machine) Restore(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Checksum != m.structuralChecksum() {
		return corectx.New("fsm", corectx.CodeIntegrityCheckFailed, "snapshot checksum mismatch")
	}
	if snap.CurrentStateIndex < 0 || snap.CurrentStateIndex >= len(m.states) {
		return corectx.New("fsm", corectx.CodeIntegrityCheckFailed, "snapshot state index out of range")
	}
	m.current = snap.CurrentStateIndex
	return nil
}

// EncodeBlob serializes snap as an opaque byte string whose first 4 bytes
// are its checksum (spec §6: "Optional snapshot blobs ... are opaque byte
// strings containing a checksum as their first 4 bytes"), preceded by a
// structural version tag.
func EncodeBlob(snap Snapshot) []byte {
	buf := make([]byte, 1+4+4+8)
	buf[0] = blobVersion
	binary.LittleEndian.PutUint32(buf[1:5], snap.Checksum)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(snap.CurrentStateIndex))
	binary.LittleEndian.PutUint64(buf[9:17], uint64(snap.TimestampUnixNano))
	return buf
}

const blobVersion byte = 1

// DecodeBlob parses a blob produced by EncodeBlob.
func DecodeBlob(blob []byte) (Snapshot, error) {
	if len(blob) != 17 {
		return Snapshot{}, corectx.New("fsm", corectx.CodeIntegrityCheckFailed, "truncated snapshot blob")
	}
	if blob[0] != blobVersion {
		return Snapshot{}, corectx.New("fsm", corectx.CodeIntegrityCheckFailed, "unsupported snapshot blob version")
	}
	return Snapshot{
		Checksum:          binary.LittleEndian.Uint32(blob[1:5]),
		CurrentStateIndex: int(binary.LittleEndian.Uint32(blob[5:9])),
		TimestampUnixNano: int64(binary.LittleEndian.Uint64(blob[9:17])),
	}, nil
}
