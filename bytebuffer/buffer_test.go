package bytebuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := New()
	require.NoError(t, b.Write16u(0xBEEF))
	require.NoError(t, b.Write32u(0xDEADC0DE))
	require.NoError(t, b.WriteBytes([]byte("hi")))

	v16, err := b.Read16u()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), v16)

	v32, err := b.Read32u()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADC0DE), v32)

	s, err := b.ReadString(2)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	assert.Zero(t, b.Readable())
}

func TestReadDrainsResetsCursors(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteBytes([]byte{1, 2, 3, 4}))

	dst := make([]byte, 4)
	require.NoError(t, b.ReadBytes(dst))

	assert.Equal(t, 0, b.Readable())
	assert.Equal(t, len(b.v), b.Writable(), "draining a read should reclaim the whole backing array")
}

func TestPartialReadDoesNotCompact(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteBytes([]byte{1, 2, 3, 4}))

	dst := make([]byte, 2)
	require.NoError(t, b.ReadBytes(dst))

	assert.Equal(t, []byte{1, 2}, dst)
	assert.Equal(t, 2, b.Readable())
}

func TestUnderReadFails(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteBytes([]byte{1, 2}))
	err := b.ReadBytes(make([]byte, 3))
	assert.ErrorIs(t, err, ErrUnderRead)
}

func TestUnderWriteFailsWithoutReserve(t *testing.T) {
	b := &Buffer{v: make([]byte, 0, 2)}
	err := b.WriteBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrUnderWrite)
}

func TestReserveHonorsMaxSize(t *testing.T) {
	b := NewLimited(4)
	require.NoError(t, b.Reserve(4))
	err := b.Reserve(5)
	assert.ErrorIs(t, err, ErrMaxSize)
}

func TestPeekDoesNotMoveCursor(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteBytes([]byte{10, 20, 30}))

	v, err := b.Peek8u(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(20), v)
	assert.Equal(t, 3, b.Readable(), "peek must not consume")
}

func TestUpdateOverwritesWithoutMovingCursor(t *testing.T) {
	b := New()
	require.NoError(t, b.Write16u(0))
	require.NoError(t, b.WriteBytes([]byte("payload")))

	require.NoError(t, b.Update16u(7, 0))

	v, err := b.Read16u()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), v)
}

func TestWriteStringDelimAppendsOnlyWhenAbsent(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteStringDelim("line", "\r\n"))
	s, err := b.ReadStringDelim("\r\n")
	require.NoError(t, err)
	assert.Equal(t, "line", s)

	b2 := New()
	require.NoError(t, b2.WriteStringDelim("already\r\n", "\r\n"))
	s2, err := b2.ReadStringDelim("\r\n")
	require.NoError(t, err)
	assert.Equal(t, "already", s2)
}

func TestReadStringDelimNotFoundFails(t *testing.T) {
	b := New()
	require.NoError(t, b.WriteString("no delimiter here"))
	_, err := b.ReadStringDelim("\r\n")
	assert.ErrorIs(t, err, ErrDelimNotFound)
}

func TestSignedIntegersRoundTrip(t *testing.T) {
	b := New()
	require.NoError(t, b.Write8(-5))
	require.NoError(t, b.Write16(-1000))
	require.NoError(t, b.Write32(-70000))
	require.NoError(t, b.Write64(-1 << 40))

	v8, err := b.Read8()
	require.NoError(t, err)
	assert.Equal(t, int8(-5), v8)

	v16, err := b.Read16()
	require.NoError(t, err)
	assert.Equal(t, int16(-1000), v16)

	v32, err := b.Read32()
	require.NoError(t, err)
	assert.Equal(t, int32(-70000), v32)

	v64, err := b.Read64()
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<40), v64)
}

func TestWrap(t *testing.T) {
	b := Wrap([]byte{1, 2, 3})
	assert.Equal(t, 3, b.Readable())
	v, err := b.Read8u()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)
}
