// Package stun3489 implements the RFC 3489 STUN wire format: the 20-byte
// message header, TLV attribute encoding, and the address/change-request
// attribute value codecs the NAT discovery engine depends on.
//
// This is deliberately RFC 3489, not STUN-bis (RFC 5389/8489): there is no
// magic cookie, no message-class/method bit-packing, no attribute padding
// to a 4-byte quantum, and MAPPED-ADDRESS carries the mapped address
// directly rather than XOR-obfuscated.
package stun3489

// MessageType is the 16-bit STUN message type field.
type MessageType uint16

// Recognized message types (RFC 3489 section 11.1).
const (
	BindingRequest             MessageType = 0x0001
	BindingResponse            MessageType = 0x0101
	BindingErrorResponse       MessageType = 0x0111
	SharedSecretRequest        MessageType = 0x0002
	SharedSecretResponse       MessageType = 0x0102
	SharedSecretErrorResponse  MessageType = 0x0112
)

func (t MessageType) String() string {
	switch t {
	case BindingRequest:
		return "BindingRequest"
	case BindingResponse:
		return "BindingResponse"
	case BindingErrorResponse:
		return "BindingErrorResponse"
	case SharedSecretRequest:
		return "SharedSecretRequest"
	case SharedSecretResponse:
		return "SharedSecretResponse"
	case SharedSecretErrorResponse:
		return "SharedSecretErrorResponse"
	default:
		return "Unknown"
	}
}

// AttrType is the 16-bit STUN attribute type field.
type AttrType uint16

// Recognized attribute types (RFC 3489 section 11.2).
const (
	AttrMappedAddress     AttrType = 0x0001
	AttrResponseAddress   AttrType = 0x0002
	AttrChangeRequest     AttrType = 0x0003
	AttrSourceAddress     AttrType = 0x0004
	AttrChangedAddress    AttrType = 0x0005
	AttrUsername          AttrType = 0x0006
	AttrPassword          AttrType = 0x0007
	AttrMessageIntegrity  AttrType = 0x0008
	AttrErrorCode         AttrType = 0x0009
	AttrUnknownAttributes AttrType = 0x000a
	AttrReflectedFrom     AttrType = 0x000b
)

// mandatoryCeiling is the highest comprehension-required attribute type:
// an unrecognized type at or below it causes the containing message to be
// rejected (RFC 3489 section 11.2: comprehension-required attributes below
// 0x8000).
const mandatoryCeiling AttrType = 0x7fff

func (t AttrType) String() string {
	switch t {
	case AttrMappedAddress:
		return "MAPPED-ADDRESS"
	case AttrResponseAddress:
		return "RESPONSE-ADDRESS"
	case AttrChangeRequest:
		return "CHANGE-REQUEST"
	case AttrSourceAddress:
		return "SOURCE-ADDRESS"
	case AttrChangedAddress:
		return "CHANGED-ADDRESS"
	case AttrUsername:
		return "USERNAME"
	case AttrPassword:
		return "PASSWORD"
	case AttrMessageIntegrity:
		return "MESSAGE-INTEGRITY"
	case AttrErrorCode:
		return "ERROR-CODE"
	case AttrUnknownAttributes:
		return "UNKNOWN-ATTRIBUTES"
	case AttrReflectedFrom:
		return "REFLECTED-FROM"
	default:
		return "Unknown"
	}
}

const (
	// MessageHeaderLength is the fixed size of the STUN message header:
	// type(2) + length(2) + transaction id(16).
	MessageHeaderLength = 20
	// AttributeHeaderLength is type(2) + length(2).
	AttributeHeaderLength = 4
	// addressValueLength is the fixed size of an address attribute value.
	addressValueLength = 8
	// changeRequestValueLength is the fixed size of a CHANGE-REQUEST value.
	changeRequestValueLength = 4

	familyIPv4 uint8 = 1

	changeIPMask   uint32 = 0x4
	changePortMask uint32 = 0x2
)
