// Package bytebuffer implements a growable FIFO of octets with independent
// read and write cursors, used as the substrate for the STUN wire codec and
// for one-shot UDP send/receive windows.
package bytebuffer

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is the error type for constant, control-flow errors in this
// package (see http://dave.cheney.net/2016/04/07/constant-errors).
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnderRead is returned when a read or peek asks for more bytes
	// than are currently readable.
	ErrUnderRead Error = "bytebuffer: not enough readable bytes"
	// ErrUnderWrite is returned when a write asks for more bytes than
	// were reserved.
	ErrUnderWrite Error = "bytebuffer: not enough writable bytes"
	// ErrMaxSize is returned by reserve when growth would exceed MaxSize.
	ErrMaxSize Error = "bytebuffer: reserve would exceed max size"
	// ErrDelimNotFound is returned by a delimited string read when the
	// delimiter does not occur in the readable region.
	ErrDelimNotFound Error = "bytebuffer: delimiter not found in readable region"
)

const defaultCapacity = 1024

// Buffer is a byte FIFO with begin <= read <= write <= end. readable is
// write-read; writable is len(v)-write. MaxSize, if non-zero, caps the
// total capacity reserve is allowed to grow to.
type Buffer struct {
	v       []byte
	read    int
	write   int
	MaxSize int
}

// New returns an empty Buffer with an unbounded MaxSize, pre-sized to
// defaultCapacity bytes of writable headroom so callers can write
// immediately without an explicit Reserve.
func New() *Buffer {
	return &Buffer{v: make([]byte, defaultCapacity)}
}

// NewLimited returns an empty Buffer that refuses to reserve past maxSize
// total bytes. maxSize of 0 means unbounded, same as New. Initial
// headroom is capped at maxSize so a small limit is honored from the
// first write, not just once Reserve is forced to grow the buffer.
func NewLimited(maxSize int) *Buffer {
	size := defaultCapacity
	if maxSize > 0 && maxSize < size {
		size = maxSize
	}
	return &Buffer{v: make([]byte, size), MaxSize: maxSize}
}

// Wrap returns a Buffer whose entire readable region is b. b is copied.
func Wrap(b []byte) *Buffer {
	v := make([]byte, len(b))
	copy(v, b)
	return &Buffer{v: v, write: len(v)}
}

func (b *Buffer) String() string {
	return fmt.Sprintf("bytebuffer(readable=%d writable=%d capacity=%d)",
		b.Readable(), b.Writable(), cap(b.v))
}

// Clear resets both cursors to zero without releasing capacity.
func (b *Buffer) Clear() {
	b.read = 0
	b.write = 0
}

// Readable returns the number of bytes available to read.
func (b *Buffer) Readable() int { return b.write - b.read }

// Writable returns the number of bytes available to write without a
// further Reserve call.
func (b *Buffer) Writable() int { return len(b.v) - b.write }

// Reserve ensures Writable() >= n, growing capacity as needed. It honors
// MaxSize: if growth to accommodate n would exceed MaxSize, it returns
// ErrMaxSize and leaves the buffer unchanged.
func (b *Buffer) Reserve(n int) error {
	if n <= 0 || b.Writable() >= n {
		return nil
	}
	needed := len(b.v) + (n - b.Writable())
	if b.MaxSize > 0 && needed > b.MaxSize {
		return ErrMaxSize
	}
	grown := make([]byte, needed)
	copy(grown, b.v)
	b.v = grown
	return nil
}

// advanceRead moves the read cursor forward by n, reclaiming the buffer
// (both cursors snap to zero) exactly when the read drains it.
func (b *Buffer) advanceRead(n int) {
	if b.Readable() == n {
		b.read = 0
		b.write = 0
		return
	}
	b.read += n
}

// WriteBytes copies n bytes of p at the write cursor and advances it.
// Fails with ErrUnderWrite if fewer than n bytes were reserved.
func (b *Buffer) WriteBytes(p []byte) error {
	n := len(p)
	if b.Writable() < n {
		return ErrUnderWrite
	}
	copy(b.v[b.write:b.write+n], p)
	b.write += n
	return nil
}

// ReadBytes copies n bytes from the read cursor into dst (which must have
// length n) and advances the read cursor.
func (b *Buffer) ReadBytes(dst []byte) error {
	n := len(dst)
	if b.Readable() < n {
		return ErrUnderRead
	}
	copy(dst, b.v[b.read:b.read+n])
	b.advanceRead(n)
	return nil
}

// PeekBytes returns a view of n bytes starting offset bytes past the read
// cursor, without moving either cursor. The returned slice aliases the
// buffer's storage.
func (b *Buffer) PeekBytes(offset, n int) ([]byte, error) {
	if b.Readable() < offset+n {
		return nil, ErrUnderRead
	}
	start := b.read + offset
	return b.v[start : start+n], nil
}

func (b *Buffer) writeFixed(p []byte) error { return b.WriteBytes(p) }

// Write8/Write8u etc. write fixed-width integers in little-endian byte
// order, whatever the host's native order; the Read, Peek and Update
// methods use the same order. The wire codec is responsible for any
// endian conversion.

func (b *Buffer) Write8(v int8) error   { return b.writeFixed([]byte{byte(v)}) }
func (b *Buffer) Write8u(v uint8) error { return b.writeFixed([]byte{v}) }

func (b *Buffer) Write16(v int16) error   { return b.write16u(uint16(v)) }
func (b *Buffer) Write16u(v uint16) error { return b.write16u(v) }
func (b *Buffer) write16u(v uint16) error {
	return b.writeFixed([]byte{byte(v), byte(v >> 8)})
}

func (b *Buffer) Write32(v int32) error   { return b.write32u(uint32(v)) }
func (b *Buffer) Write32u(v uint32) error { return b.write32u(v) }
func (b *Buffer) write32u(v uint32) error {
	return b.writeFixed([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (b *Buffer) Write64(v int64) error   { return b.write64u(uint64(v)) }
func (b *Buffer) Write64u(v uint64) error { return b.write64u(v) }
func (b *Buffer) write64u(v uint64) error {
	p := make([]byte, 8)
	for i := 0; i < 8; i++ {
		p[i] = byte(v >> (8 * uint(i)))
	}
	return b.writeFixed(p)
}

func (b *Buffer) WriteBool(v bool) error {
	if v {
		return b.Write8u(1)
	}
	return b.Write8u(0)
}

// WriteString writes the raw bytes of s with no terminator.
func (b *Buffer) WriteString(s string) error {
	return b.WriteBytes([]byte(s))
}

// WriteStringDelim writes s followed by delim, unless s already ends with
// delim (a substring comparison against the last len(delim) bytes of s,
// not a byte-by-byte scan, to avoid off-by-one variants on multi-byte
// delimiters).
func (b *Buffer) WriteStringDelim(s, delim string) error {
	if err := b.WriteString(s); err != nil {
		return err
	}
	if len(delim) == 0 {
		return nil
	}
	if len(s) >= len(delim) && s[len(s)-len(delim):] == delim {
		return nil
	}
	return b.WriteString(delim)
}

func (b *Buffer) readFixed(n int) ([]byte, error) {
	p := make([]byte, n)
	if err := b.ReadBytes(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Buffer) Read8() (int8, error) {
	v, err := b.Read8u()
	return int8(v), err
}

func (b *Buffer) Read8u() (uint8, error) {
	p, err := b.readFixed(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) Read16() (int16, error) {
	v, err := b.Read16u()
	return int16(v), err
}

func (b *Buffer) Read16u() (uint16, error) {
	p, err := b.readFixed(2)
	if err != nil {
		return 0, err
	}
	return uint16(p[0]) | uint16(p[1])<<8, nil
}

func (b *Buffer) Read32() (int32, error) {
	v, err := b.Read32u()
	return int32(v), err
}

func (b *Buffer) Read32u() (uint32, error) {
	p, err := b.readFixed(4)
	if err != nil {
		return 0, err
	}
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24, nil
}

func (b *Buffer) Read64() (int64, error) {
	v, err := b.Read64u()
	return int64(v), err
}

func (b *Buffer) Read64u() (uint64, error) {
	p, err := b.readFixed(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(p[i]) << (8 * uint(i))
	}
	return v, nil
}

func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.Read8u()
	return v != 0, err
}

// ReadString consumes exactly n bytes.
func (b *Buffer) ReadString(n int) (string, error) {
	p, err := b.readFixed(n)
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// ReadStringDelim consumes up to and including the first occurrence of
// delim in the readable region. Fails with ErrDelimNotFound if delim does
// not occur.
func (b *Buffer) ReadStringDelim(delim string) (string, error) {
	if len(delim) == 0 {
		return "", ErrDelimNotFound
	}
	readable := b.v[b.read:b.write]
	idx := indexSubslice(readable, []byte(delim))
	if idx < 0 {
		return "", ErrDelimNotFound
	}
	end := idx + len(delim)
	s := string(readable[:idx])
	b.advanceRead(end)
	return s, nil
}

func indexSubslice(haystack, needle []byte) int {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

// peekFixed returns n bytes starting offset past the read cursor.
func (b *Buffer) peekFixed(offset, n int) ([]byte, error) {
	return b.PeekBytes(offset, n)
}

func (b *Buffer) Peek8u(offset int) (uint8, error) {
	p, err := b.peekFixed(offset, 1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) Peek16u(offset int) (uint16, error) {
	p, err := b.peekFixed(offset, 2)
	if err != nil {
		return 0, err
	}
	return uint16(p[0]) | uint16(p[1])<<8, nil
}

func (b *Buffer) Peek32u(offset int) (uint32, error) {
	p, err := b.peekFixed(offset, 4)
	if err != nil {
		return 0, err
	}
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24, nil
}

// Update8u overwrites an already-written byte at offset past the read
// cursor (used by codecs that backpatch a length field).
func (b *Buffer) Update8u(v uint8, offset int) error {
	if b.Readable() < offset+1 {
		return errors.Wrap(ErrUnderRead, "update8u")
	}
	b.v[b.read+offset] = v
	return nil
}

func (b *Buffer) Update16u(v uint16, offset int) error {
	if b.Readable() < offset+2 {
		return errors.Wrap(ErrUnderRead, "update16u")
	}
	b.v[b.read+offset] = byte(v)
	b.v[b.read+offset+1] = byte(v >> 8)
	return nil
}

func (b *Buffer) Update32u(v uint32, offset int) error {
	if b.Readable() < offset+4 {
		return errors.Wrap(ErrUnderRead, "update32u")
	}
	p := b.v[b.read+offset:]
	p[0] = byte(v)
	p[1] = byte(v >> 8)
	p[2] = byte(v >> 16)
	p[3] = byte(v >> 24)
	return nil
}

// Bytes returns a view of the readable region without consuming it.
func (b *Buffer) Bytes() []byte {
	return b.v[b.read:b.write]
}
