package stun3489

import (
	"github.com/pkg/errors"

	"github.com/maoxuli/stunclient/bytebuffer"
	"github.com/maoxuli/stunclient/stun3489/transaction"
)

// Message is a decoded STUN message: a type, a correlating transaction id,
// and zero or more attributes.
type Message struct {
	Type          MessageType
	TransactionID transaction.ID
	Attributes    []Attribute
}

// NewBindingRequest builds a BindingRequest with a fresh transaction id and
// the given optional attributes (typically a CHANGE-REQUEST or a
// RESPONSE-ADDRESS).
func NewBindingRequest(attrs ...Attribute) *Message {
	return &Message{
		Type:          BindingRequest,
		TransactionID: transaction.New(),
		Attributes:    attrs,
	}
}

// Get returns the first attribute of the given type, if present.
func (m *Message) Get(t AttrType) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Type == t {
			return a, true
		}
	}
	return Attribute{}, false
}

// MappedAddress returns the MAPPED-ADDRESS attribute value, if present.
func (m *Message) MappedAddress() (Address, bool) {
	return m.address(AttrMappedAddress)
}

// SourceAddress returns the SOURCE-ADDRESS attribute value, if present.
func (m *Message) SourceAddress() (Address, bool) {
	return m.address(AttrSourceAddress)
}

// ChangedAddress returns the CHANGED-ADDRESS attribute value, if present.
func (m *Message) ChangedAddress() (Address, bool) {
	return m.address(AttrChangedAddress)
}

// ResponseAddress returns the RESPONSE-ADDRESS attribute value, if present.
func (m *Message) ResponseAddress() (Address, bool) {
	return m.address(AttrResponseAddress)
}

// ReflectedFrom returns the REFLECTED-FROM attribute value, if present.
func (m *Message) ReflectedFrom() (Address, bool) {
	return m.address(AttrReflectedFrom)
}

func (m *Message) address(t AttrType) (Address, bool) {
	a, ok := m.Get(t)
	if !ok {
		return Address{}, false
	}
	addr, ok := a.Value.(Address)
	return addr, ok
}

// ErrorCode returns the raw ERROR-CODE attribute value, if present; use
// ErrorClass/ErrorNumber/ErrorReason to decode it.
func (m *Message) ErrorCode() (Opaque, bool) {
	a, ok := m.Get(AttrErrorCode)
	if !ok {
		return Opaque{}, false
	}
	v, ok := a.Value.(Opaque)
	return v, ok
}

// PeekMessageType returns the message type at the current read cursor
// without consuming it, mirroring the original `Message::checkType`
// factory-dispatch helper.
func PeekMessageType(buf *bytebuffer.Buffer) (MessageType, error) {
	v, err := peekUint16(buf, 0)
	if err != nil {
		return 0, err
	}
	return MessageType(v), nil
}

// Encode writes m's wire form into buf: a 20-byte header (type, length,
// transaction id) followed by each attribute's TLV in order. Unlike
// STUN-bis, attribute values are never padded to a 4-byte boundary. All
// multi-byte fields go out in network byte order.
func Encode(m *Message, buf *bytebuffer.Buffer) error {
	lengthFieldOffset := buf.Readable() + 2 // 2 bytes into this message, past the type field

	if err := writeUint16(buf, uint16(m.Type)); err != nil {
		return err
	}
	if err := writeUint16(buf, 0); err != nil { // length backpatched below
		return err
	}
	if err := buf.WriteBytes(m.TransactionID[:]); err != nil {
		return err
	}

	bodyStart := buf.Readable()
	for _, a := range m.Attributes {
		if err := encodeAttribute(buf, a); err != nil {
			return errors.Wrapf(err, "stun3489: encoding attribute %s", a.Type)
		}
	}
	bodyLength := buf.Readable() - bodyStart

	if err := updateUint16(buf, uint16(bodyLength), lengthFieldOffset); err != nil {
		return errors.Wrap(err, "stun3489: backpatching message length")
	}
	return nil
}

// Decode reads a Message from buf. Only BindingResponse and
// BindingErrorResponse are accepted — this codec only ever needs to parse
// what a compliant server sends back to a BindingRequest.
func Decode(buf *bytebuffer.Buffer) (*Message, error) {
	typ, err := readUint16(buf)
	if err != nil {
		return nil, newDecodeError(PlaceMessageHeader, err)
	}
	mt := MessageType(typ)
	if mt != BindingResponse && mt != BindingErrorResponse {
		return nil, newDecodeError(PlaceMessageHeader, errors.Wrapf(ErrUnknownMessageType, "type 0x%04x", typ))
	}

	length, err := readUint16(buf)
	if err != nil {
		return nil, newDecodeError(PlaceMessageHeader, err)
	}

	var tid transaction.ID
	tidBytes := make([]byte, transaction.Size)
	if err := buf.ReadBytes(tidBytes); err != nil {
		return nil, newDecodeError(PlaceMessageHeader, err)
	}
	tid = transaction.FromBytes(tidBytes)

	if buf.Readable() < int(length) {
		return nil, newDecodeError(PlaceMessageHeader, errors.Wrapf(ErrTruncated, "body %d bytes, have %d", length, buf.Readable()))
	}

	m := &Message{Type: mt, TransactionID: tid}
	consumed := 0
	for consumed < int(length) {
		before := buf.Readable()
		a, err := decodeAttribute(buf)
		if err != nil {
			return nil, err
		}
		consumed += before - buf.Readable()
		m.Attributes = append(m.Attributes, a)
	}
	return m, nil
}
