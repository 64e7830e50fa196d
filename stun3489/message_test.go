package stun3489

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maoxuli/stunclient/bytebuffer"
)

func TestEncodeBindingRequestHeader(t *testing.T) {
	req := NewBindingRequest(Attribute{
		Type:  AttrChangeRequest,
		Value: ChangeRequest{ChangeIP: true, ChangePort: false},
	})

	buf := bytebuffer.New()
	require.NoError(t, Encode(req, buf))

	// A BindingRequest can't be Decoded (only responses are accepted), so
	// exercise the header/length invariant directly.
	mt, err := PeekMessageType(buf)
	require.NoError(t, err)
	assert.Equal(t, BindingRequest, mt)

	assert.Equal(t, MessageHeaderLength+AttributeHeaderLength+changeRequestValueLength, buf.Readable())
	length, err := peekUint16(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(AttributeHeaderLength+changeRequestValueLength), length)
}

func TestHeaderLengthInvariant(t *testing.T) {
	resp := &Message{
		Type:          BindingResponse,
		TransactionID: transactionIDFixture(),
		Attributes: []Attribute{
			{Type: AttrMappedAddress, Value: Address{IP: net.IPv4(203, 0, 113, 5), Port: 54321}},
		},
	}

	buf := bytebuffer.New()
	require.NoError(t, Encode(resp, buf))

	assert.Equal(t, MessageHeaderLength+AttributeHeaderLength+addressValueLength, buf.Readable())

	out, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, BindingResponse, out.Type)
	assert.Equal(t, resp.TransactionID, out.TransactionID)
	assert.Zero(t, buf.Readable(), "decode must consume exactly the declared length")
}

func TestAddressAttributeRoundTrip(t *testing.T) {
	resp := &Message{
		Type:          BindingResponse,
		TransactionID: transactionIDFixture(),
		Attributes: []Attribute{
			{Type: AttrMappedAddress, Value: Address{IP: net.IPv4(198, 51, 100, 7), Port: 4500}},
			{Type: AttrSourceAddress, Value: Address{IP: net.IPv4(192, 0, 2, 1), Port: 3478}},
			{Type: AttrChangedAddress, Value: Address{IP: net.IPv4(192, 0, 2, 2), Port: 3479}},
		},
	}

	buf := bytebuffer.New()
	require.NoError(t, Encode(resp, buf))

	out, err := Decode(buf)
	require.NoError(t, err)

	mapped, ok := out.MappedAddress()
	require.True(t, ok)
	assert.True(t, mapped.IP.Equal(net.IPv4(198, 51, 100, 7)))
	assert.Equal(t, uint16(4500), mapped.Port)

	source, ok := out.SourceAddress()
	require.True(t, ok)
	assert.Equal(t, uint16(3478), source.Port)

	changed, ok := out.ChangedAddress()
	require.True(t, ok)
	assert.Equal(t, uint16(3479), changed.Port)
}

func TestChangeRequestAttributeShape(t *testing.T) {
	buf := bytebuffer.New()
	attr := Attribute{Type: AttrChangeRequest, Value: ChangeRequest{ChangeIP: true, ChangePort: true}}
	require.NoError(t, encodeAttribute(buf, attr))

	typ, err := readUint16(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(AttrChangeRequest), typ)

	length, err := readUint16(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(changeRequestValueLength), length)

	v, err := readUint32(buf)
	require.NoError(t, err)
	assert.Equal(t, changeIPMask|changePortMask, v)
}

func TestDecodeRejectsUnknownMandatoryAttribute(t *testing.T) {
	resp := &Message{Type: BindingResponse, TransactionID: transactionIDFixture()}
	buf := bytebuffer.New()
	require.NoError(t, Encode(resp, buf))

	// Splice in one unrecognized mandatory attribute (type 0x0050) by
	// re-encoding a message whose length now covers it.
	buf2 := bytebuffer.New()
	require.NoError(t, writeUint16(buf2, uint16(BindingResponse)))
	require.NoError(t, writeUint16(buf2, 4))
	require.NoError(t, buf2.WriteBytes(resp.TransactionID[:]))
	require.NoError(t, writeUint16(buf2, 0x0050))
	require.NoError(t, writeUint16(buf2, 0))

	_, err := Decode(buf2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMandatoryAttribute)
}

func TestDecodeSkipsUnknownOptionalAttribute(t *testing.T) {
	tid := transactionIDFixture()
	buf := bytebuffer.New()
	require.NoError(t, writeUint16(buf, uint16(BindingResponse)))
	require.NoError(t, writeUint16(buf, 4))
	require.NoError(t, buf.WriteBytes(tid[:]))
	require.NoError(t, writeUint16(buf, 0x8050))
	require.NoError(t, writeUint16(buf, 0))

	m, err := Decode(buf)
	require.NoError(t, err)
	require.Len(t, m.Attributes, 1)
	assert.Equal(t, AttrType(0x8050), m.Attributes[0].Type)
}

func TestDecodeRejectsNonResponseType(t *testing.T) {
	buf := bytebuffer.New()
	require.NoError(t, writeUint16(buf, uint16(BindingRequest)))
	require.NoError(t, writeUint16(buf, 0))
	require.NoError(t, buf.WriteBytes(make([]byte, 16)))

	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrUnknownMessageType)
}

// TestEncodeIsNetworkByteOrder pins the wire form to big-endian with a
// literal byte vector — the old host-order round trip passed even when
// reads and writes were symmetrically wrong, so this asserts the actual
// bytes rather than a round trip.
func TestEncodeIsNetworkByteOrder(t *testing.T) {
	req := &Message{
		Type:          BindingRequest,
		TransactionID: transactionIDFixture(),
		Attributes: []Attribute{
			{Type: AttrChangeRequest, Value: ChangeRequest{ChangeIP: true, ChangePort: false}},
		},
	}

	buf := bytebuffer.New()
	require.NoError(t, Encode(req, buf))
	raw := buf.Bytes()

	assert.Equal(t, []byte{0x00, 0x01}, raw[0:2], "message type must be big-endian")
	assert.Equal(t, []byte{0x00, 0x08}, raw[2:4], "message length must be big-endian")
	assert.Equal(t, []byte{0x00, 0x03}, raw[20:22], "attribute type must be big-endian")
	assert.Equal(t, []byte{0x00, 0x04}, raw[22:24], "attribute length must be big-endian")
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x04}, raw[24:28], "CHANGE-REQUEST flags must be big-endian")
}

func TestAddressAttributeEncodesPortBigEndian(t *testing.T) {
	buf := bytebuffer.New()
	attr := Attribute{Type: AttrMappedAddress, Value: Address{IP: net.IPv4(1, 2, 3, 4), Port: 0x1234}}
	require.NoError(t, encodeAttribute(buf, attr))

	raw := buf.Bytes()
	assert.Equal(t, []byte{0x00, 0x01}, raw[0:2], "attribute type must be big-endian")
	assert.Equal(t, []byte{0x00, 0x08}, raw[2:4], "attribute length must be big-endian")
	assert.Equal(t, []byte{0x12, 0x34}, raw[6:8], "port must be big-endian on the wire")
	assert.Equal(t, []byte{1, 2, 3, 4}, raw[8:12])
}

func TestErrorCodeAccessors(t *testing.T) {
	reason := "Bad Request"
	bytes := append([]byte{0, 0, 0x04, 0x00}, []byte(reason)...) // class 4, number 400
	v := Opaque{Bytes: bytes}

	class, err := ErrorClass(v)
	require.NoError(t, err)
	assert.Equal(t, 4, class)

	number, err := ErrorNumber(v)
	require.NoError(t, err)
	assert.Equal(t, 400, number)

	got, err := ErrorReason(v)
	require.NoError(t, err)
	assert.Equal(t, reason, got)
}

func transactionIDFixture() (id [16]byte) {
	for i := range id {
		id[i] = byte(i)
	}
	return id
}
