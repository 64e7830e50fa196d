// Package transaction provides the 128-bit opaque transaction id that
// correlates a STUN request with its response.
package transaction

import "github.com/google/uuid"

// Size is the length in bytes of a transaction id.
const Size = 16

// ID is a 128-bit opaque value generated once per outgoing request and
// compared for equality when correlating responses.
type ID [Size]byte

// New generates a fresh, cryptographically random transaction id.
func New() ID {
	return ID(uuid.New())
}

// FromBytes copies b (which must be Size bytes) into a new ID.
func FromBytes(b []byte) ID {
	var id ID
	copy(id[:], b)
	return id
}

// Equal reports whether id and other carry the same value.
func (id ID) Equal(other ID) bool {
	return id == other
}

// String renders the canonical (RFC 4122-style) textual form used for
// logging and trace output.
func (id ID) String() string {
	return uuid.UUID(id).String()
}
