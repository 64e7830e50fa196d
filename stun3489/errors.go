package stun3489

import "fmt"

// Error is a constant, control-flow error (see
// http://dave.cheney.net/2016/04/07/constant-errors), matching the pattern
// used throughout the teacher's own error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrUnknownMessageType is returned by Decode when the message type is
	// not one this codec constructs (only BindingResponse and
	// BindingErrorResponse are accepted from the wire).
	ErrUnknownMessageType Error = "stun3489: unrecognized or unsupported message type"
	// ErrMandatoryAttribute is returned when an attribute type below the
	// comprehension-required ceiling (0x8000) is not recognized.
	ErrMandatoryAttribute Error = "stun3489: unrecognized mandatory attribute"
	// ErrTruncated is returned by Decode when fewer bytes follow the header
	// than its length field declares.
	ErrTruncated Error = "stun3489: message truncated"
	// ErrNotErrorCode is returned by the ERROR-CODE accessors when the
	// value they are given is shorter than the four-byte ERROR-CODE prefix.
	ErrNotErrorCode Error = "stun3489: attribute is not ERROR-CODE"
)

// DecodePlace names the decode stage at which a DecodeError occurred, in
// the style of the teacher's DecodeErrPlace.
type DecodePlace byte

const (
	PlaceMessageHeader DecodePlace = iota
	PlaceAttrHeader
	PlaceAttrValue
)

func (p DecodePlace) String() string {
	switch p {
	case PlaceMessageHeader:
		return "message-header"
	case PlaceAttrHeader:
		return "attribute-header"
	case PlaceAttrValue:
		return "attribute-value"
	default:
		return "unknown"
	}
}

// DecodeError wraps a parse failure with the stage it happened at, so
// callers can distinguish "not a STUN datagram at all" from "malformed
// attribute inside an otherwise well-formed message".
type DecodeError struct {
	Place DecodePlace
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stun3489: decode failed at %s: %v", e.Place, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(place DecodePlace, err error) *DecodeError {
	return &DecodeError{Place: place, Err: err}
}
