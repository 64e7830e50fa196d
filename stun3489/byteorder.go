package stun3489

import (
	"encoding/binary"

	"github.com/maoxuli/stunclient/bytebuffer"
)

// Every multi-byte scalar on the wire (message type, length, attribute
// type/length, address port, change-request flags) is network byte order
// (big-endian), per RFC 3489 section 11 — the original C++ codec applies
// htons/htonl to exactly these fields. bytebuffer's typed integers are
// little-endian and it applies no network-order conversion, so the swap
// lives here, at the one boundary that actually touches the wire.

func writeUint16(buf *bytebuffer.Buffer, v uint16) error {
	var p [2]byte
	binary.BigEndian.PutUint16(p[:], v)
	return buf.WriteBytes(p[:])
}

func writeUint32(buf *bytebuffer.Buffer, v uint32) error {
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], v)
	return buf.WriteBytes(p[:])
}

func readUint16(buf *bytebuffer.Buffer) (uint16, error) {
	var p [2]byte
	if err := buf.ReadBytes(p[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p[:]), nil
}

func readUint32(buf *bytebuffer.Buffer) (uint32, error) {
	var p [4]byte
	if err := buf.ReadBytes(p[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p[:]), nil
}

func peekUint16(buf *bytebuffer.Buffer, offset int) (uint16, error) {
	p, err := buf.PeekBytes(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

// updateUint16 backpatches a big-endian uint16 already written at offset
// bytes past the read cursor. bytebuffer's Update16u is host-order, so the
// two bytes are poked individually, MSB first.
func updateUint16(buf *bytebuffer.Buffer, v uint16, offset int) error {
	if err := buf.Update8u(byte(v>>8), offset); err != nil {
		return err
	}
	return buf.Update8u(byte(v), offset+1)
}
