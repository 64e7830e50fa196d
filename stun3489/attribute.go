package stun3489

import (
	"net"

	"github.com/pkg/errors"

	"github.com/maoxuli/stunclient/bytebuffer"
)

// AttrValue is the payload of an Attribute. It is a closed tagged variant:
// Address, ChangeRequest, or Opaque. Encoding and decoding switch on the
// concrete type rather than dispatching through a virtual method, since Go
// has no attribute-class hierarchy to mirror the original C++ design.
type AttrValue interface {
	isAttrValue()
	length() int
}

// addressAttrTypes are the attribute types whose value is address-shaped
// (RFC 3489 section 11.2.1/11.2.2/11.2.3/11.2.5/11.2.11): family, port, and
// a 4-byte IPv4 address, never XOR-obfuscated.
var addressAttrTypes = map[AttrType]bool{
	AttrMappedAddress:   true,
	AttrResponseAddress: true,
	AttrSourceAddress:   true,
	AttrChangedAddress:  true,
	AttrReflectedFrom:   true,
}

// opaqueAttrTypes are recognized but carried as an undecoded byte blob,
// per spec: the discovery engine never needs their structure beyond
// ERROR-CODE's thin accessor below.
var opaqueAttrTypes = map[AttrType]bool{
	AttrUsername:          true,
	AttrPassword:          true,
	AttrMessageIntegrity:  true,
	AttrErrorCode:         true,
	AttrUnknownAttributes: true,
}

// Address is the value of any address-shaped attribute: MAPPED-ADDRESS,
// RESPONSE-ADDRESS, SOURCE-ADDRESS, CHANGED-ADDRESS, REFLECTED-FROM.
type Address struct {
	IP   net.IP
	Port uint16
}

func (Address) isAttrValue() {}
func (Address) length() int  { return addressValueLength }

func (a Address) encode(buf *bytebuffer.Buffer) error {
	ip4 := a.IP.To4()
	if ip4 == nil {
		return errors.New("stun3489: address attribute requires an IPv4 address")
	}
	if err := buf.Write8u(0); err != nil {
		return err
	}
	if err := buf.Write8u(familyIPv4); err != nil {
		return err
	}
	if err := writeUint16(buf, a.Port); err != nil {
		return err
	}
	return buf.WriteBytes(ip4)
}

func decodeAddress(buf *bytebuffer.Buffer) (Address, error) {
	if _, err := buf.Read8u(); err != nil { // reserved
		return Address{}, err
	}
	family, err := buf.Read8u()
	if err != nil {
		return Address{}, err
	}
	if family != familyIPv4 {
		return Address{}, errors.Errorf("stun3489: unsupported address family %d", family)
	}
	port, err := readUint16(buf)
	if err != nil {
		return Address{}, err
	}
	raw := make([]byte, 4)
	if err := buf.ReadBytes(raw); err != nil {
		return Address{}, err
	}
	return Address{IP: net.IP(raw), Port: port}, nil
}

// ChangeRequest is the value of CHANGE-REQUEST: a request that the server
// source its response from a different IP and/or port.
type ChangeRequest struct {
	ChangeIP   bool
	ChangePort bool
}

func (ChangeRequest) isAttrValue() {}
func (ChangeRequest) length() int  { return changeRequestValueLength }

func (c ChangeRequest) encode(buf *bytebuffer.Buffer) error {
	var v uint32
	if c.ChangeIP {
		v |= changeIPMask
	}
	if c.ChangePort {
		v |= changePortMask
	}
	return writeUint32(buf, v)
}

func decodeChangeRequest(buf *bytebuffer.Buffer) (ChangeRequest, error) {
	v, err := readUint32(buf)
	if err != nil {
		return ChangeRequest{}, err
	}
	return ChangeRequest{
		ChangeIP:   v&changeIPMask != 0,
		ChangePort: v&changePortMask != 0,
	}, nil
}

// Opaque is the value of any recognized attribute whose structure the
// discovery engine does not need to interpret (USERNAME, PASSWORD,
// MESSAGE-INTEGRITY, ERROR-CODE, UNKNOWN-ATTRIBUTES) as well as any
// unrecognized optional attribute (type >= 0x8000).
type Opaque struct {
	Bytes []byte
}

func (Opaque) isAttrValue()    {}
func (o Opaque) length() int   { return len(o.Bytes) }

func (o Opaque) encode(buf *bytebuffer.Buffer) error {
	return buf.WriteBytes(o.Bytes)
}

func decodeOpaque(buf *bytebuffer.Buffer, n int) (Opaque, error) {
	p := make([]byte, n)
	if err := buf.ReadBytes(p); err != nil {
		return Opaque{}, err
	}
	return Opaque{Bytes: p}, nil
}

// ErrorClass, ErrorNumber, and ErrorReason decode ERROR-CODE's packed
// class/number/reason-phrase layout (RFC 3489 section 11.2.9) from an
// Opaque value. They fail with ErrNotErrorCode if v is not at least four
// bytes (the fixed reserved+class+number prefix).
func ErrorClass(v Opaque) (int, error) {
	if len(v.Bytes) < 4 {
		return 0, ErrNotErrorCode
	}
	return int(v.Bytes[2] & 0x07), nil
}

func ErrorNumber(v Opaque) (int, error) {
	if len(v.Bytes) < 4 {
		return 0, ErrNotErrorCode
	}
	class := int(v.Bytes[2] & 0x07)
	return class*100 + int(v.Bytes[3]), nil
}

func ErrorReason(v Opaque) (string, error) {
	if len(v.Bytes) < 4 {
		return "", ErrNotErrorCode
	}
	return string(v.Bytes[4:]), nil
}

// Attribute is a single STUN TLV: a type tag and its AttrValue.
type Attribute struct {
	Type  AttrType
	Value AttrValue
}

func encodeAttribute(buf *bytebuffer.Buffer, a Attribute) error {
	if err := writeUint16(buf, uint16(a.Type)); err != nil {
		return err
	}
	if err := writeUint16(buf, uint16(a.Value.length())); err != nil {
		return err
	}
	switch v := a.Value.(type) {
	case Address:
		return v.encode(buf)
	case ChangeRequest:
		return v.encode(buf)
	case Opaque:
		return v.encode(buf)
	default:
		return errors.Errorf("stun3489: unencodable attribute value %T", a.Value)
	}
}

// PeekAttrType returns the attribute type at the current read cursor
// without consuming it, mirroring the original `Attribute::checkType`
// factory-dispatch helper.
func PeekAttrType(buf *bytebuffer.Buffer) (AttrType, error) {
	v, err := peekUint16(buf, 0)
	if err != nil {
		return 0, err
	}
	return AttrType(v), nil
}

func decodeAttribute(buf *bytebuffer.Buffer) (Attribute, error) {
	typ, err := readUint16(buf)
	if err != nil {
		return Attribute{}, newDecodeError(PlaceAttrHeader, err)
	}
	length, err := readUint16(buf)
	if err != nil {
		return Attribute{}, newDecodeError(PlaceAttrHeader, err)
	}
	at := AttrType(typ)

	switch {
	case addressAttrTypes[at]:
		if length != addressValueLength {
			return Attribute{}, newDecodeError(PlaceAttrValue, errors.Errorf("stun3489: %s length %d, want %d", at, length, addressValueLength))
		}
		v, err := decodeAddress(buf)
		if err != nil {
			return Attribute{}, newDecodeError(PlaceAttrValue, err)
		}
		return Attribute{Type: at, Value: v}, nil

	case at == AttrChangeRequest:
		if length != changeRequestValueLength {
			return Attribute{}, newDecodeError(PlaceAttrValue, errors.Errorf("stun3489: CHANGE-REQUEST length %d, want %d", length, changeRequestValueLength))
		}
		v, err := decodeChangeRequest(buf)
		if err != nil {
			return Attribute{}, newDecodeError(PlaceAttrValue, err)
		}
		return Attribute{Type: at, Value: v}, nil

	case opaqueAttrTypes[at]:
		v, err := decodeOpaque(buf, int(length))
		if err != nil {
			return Attribute{}, newDecodeError(PlaceAttrValue, err)
		}
		return Attribute{Type: at, Value: v}, nil

	case at > mandatoryCeiling:
		// Comprehension-optional: not recognized, but safe to skip.
		v, err := decodeOpaque(buf, int(length))
		if err != nil {
			return Attribute{}, newDecodeError(PlaceAttrValue, err)
		}
		return Attribute{Type: at, Value: v}, nil

	default:
		return Attribute{}, newDecodeError(PlaceAttrHeader, errors.Wrapf(ErrMandatoryAttribute, "type 0x%04x", typ))
	}
}
