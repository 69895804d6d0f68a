// Package wire implements the wire protocol framer and dispatcher
// (component C5): a fixed 16-byte little-endian header, a rotate-add
// payload checksum, and type-based routing into the session, FFI, and
// pub/sub layers.
package wire

import (
	"encoding/binary"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// HeaderSize is the fixed wire header length in bytes (spec §6).
const HeaderSize = 16

// MessageType is the wire frame's type discriminant.
type MessageType uint8

const (
	TypeHandshake MessageType = iota + 1
	TypeAuth
	TypeCommand
	TypeResponse
	TypeError
	TypeHeartbeat
	TypePublish
	TypeSubscribe
	TypeUnsubscribe
)

func (t MessageType) valid() bool {
	return t >= TypeHandshake && t <= TypeUnsubscribe
}

func (t MessageType) String() string {
	switch t {
	case TypeHandshake:
		return "HANDSHAKE"
	case TypeAuth:
		return "AUTH"
	case TypeCommand:
		return "COMMAND"
	case TypeResponse:
		return "RESPONSE"
	case TypeError:
		return "ERROR"
	case TypeHeartbeat:
		return "HEARTBEAT"
	case TypePublish:
		return "PUBLISH"
	case TypeSubscribe:
		return "SUBSCRIBE"
	case TypeUnsubscribe:
		return "UNSUBSCRIBE"
	default:
		return "UNKNOWN"
	}
}

// Flags is a bitmask of per-message wire flags.
type Flags uint16

const (
	FlagEncrypted Flags = 0x01
	FlagCompressed Flags = 0x02
	FlagUrgent     Flags = 0x04
	FlagReliable   Flags = 0x08
)

// ProtocolVersion is the only header version this framer accepts.
const ProtocolVersion uint8 = 1

// Header is the 16-byte fixed wire header (spec §6).
type Header struct {
	Version       uint8
	Type          MessageType
	Flags         Flags
	Sequence      uint32
	PayloadLength uint32
	Checksum      uint32
}

// Checksum computes the rotate-add checksum over payload (spec §4.5):
// c = ((c<<5) | (c>>27)) + byte, for each byte, initial c=0, masked to 32
// bits. An empty payload hashes to 0.
func Checksum(payload []byte) uint32 {
	var c uint32
	for _, b := range payload {
		c = ((c << 5) | (c >> 27)) + uint32(b)
	}
	return c
}

// Message is a fully decoded wire frame.
type Message struct {
	Header  Header
	Payload []byte
}

// Encode serializes msg into header-then-payload bytes, rejecting frames
// whose total length exceeds maxMessageSize.
func Encode(msg Message, maxMessageSize uint32) ([]byte, error) {
	total := uint32(HeaderSize) + uint32(len(msg.Payload))
	if total > maxMessageSize {
		return nil, corectx.New("wire", corectx.CodeTooLarge, "message exceeds configured maximum size")
	}
	if !msg.Header.Type.valid() {
		return nil, corectx.New("wire", corectx.CodeInvalidParameter, "invalid message type")
	}

	buf := make([]byte, HeaderSize+len(msg.Payload))
	buf[0] = msg.Header.Version
	buf[1] = byte(msg.Header.Type)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(msg.Header.Flags))
	binary.LittleEndian.PutUint32(buf[4:8], msg.Header.Sequence)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(msg.Payload)))
	binary.LittleEndian.PutUint32(buf[12:16], Checksum(msg.Payload))
	copy(buf[HeaderSize:], msg.Payload)
	return buf, nil
}

// Decode validates and parses a wire frame: version equality, type range,
// payload length within maxMessageSize, and checksum equality.
func Decode(data []byte, maxMessageSize uint32) (Message, error) {
	if len(data) < HeaderSize {
		return Message{}, corectx.New("wire", corectx.CodeInvalidParameter, "frame shorter than header")
	}

	h := Header{
		Version:       data[0],
		Type:          MessageType(data[1]),
		Flags:         Flags(binary.LittleEndian.Uint16(data[2:4])),
		Sequence:      binary.LittleEndian.Uint32(data[4:8]),
		PayloadLength: binary.LittleEndian.Uint32(data[8:12]),
		Checksum:      binary.LittleEndian.Uint32(data[12:16]),
	}

	if h.Version != ProtocolVersion {
		return Message{}, corectx.New("wire", corectx.CodeInvalidParameter, "unsupported protocol version")
	}
	if !h.Type.valid() {
		return Message{}, corectx.New("wire", corectx.CodeInvalidParameter, "invalid message type")
	}
	if h.PayloadLength > maxMessageSize {
		return Message{}, corectx.New("wire", corectx.CodeTooLarge, "payload length exceeds configured maximum")
	}
	if uint32(len(data)-HeaderSize) != h.PayloadLength {
		return Message{}, corectx.New("wire", corectx.CodeInvalidParameter, "payload length field does not match frame size")
	}

	payload := data[HeaderSize : HeaderSize+int(h.PayloadLength)]
	if Checksum(payload) != h.Checksum {
		return Message{}, corectx.New("wire", corectx.CodeChecksumMismatch, "checksum mismatch")
	}

	return Message{Header: h, Payload: append([]byte(nil), payload...)}, nil
}
