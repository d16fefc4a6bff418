package domain

import (
	"encoding/hex"
	"strings"

	dErrors "soulpass/pkg/domain-errors"
)

// AddressLength is the byte length of an owner identity.
const AddressLength = 20

// Address is the externally-owned identity a passport is bound to. It is a
// 20-byte value rendered as 0x-prefixed lower-case hex.
//
// Invariant: the zero value is the null identity and never owns a passport.
//
// Usage: construct via ParseAddress at trust boundaries; direct casting
// bypasses validation.
type Address [AddressLength]byte

// ZeroAddress is the null identity.
var ZeroAddress = Address{}

// ParseAddress constructs an Address from external input.
//
// Errors: returns CodeInvalidOwner when the value is empty, not 0x-prefixed
// hex, or the wrong length; no other errors are expected.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, dErrors.New(dErrors.CodeInvalidOwner, "owner address cannot be empty")
	}
	hexPart, ok := strings.CutPrefix(s, "0x")
	if !ok {
		hexPart, ok = strings.CutPrefix(s, "0X")
	}
	if !ok {
		return Address{}, dErrors.New(dErrors.CodeInvalidOwner, "owner address must be 0x-prefixed hex")
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidOwner, "owner address is not valid hex")
	}
	if len(raw) != AddressLength {
		return Address{}, dErrors.New(dErrors.CodeInvalidOwner, "owner address must be 20 bytes")
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// IsZero reports whether the address is the null identity.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the 0x-prefixed lower-case hex representation.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler so addresses serialize as hex
// in JSON payloads.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
