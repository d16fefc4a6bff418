package domain

import (
	"strconv"

	dErrors "soulpass/pkg/domain-errors"
)

// TokenID identifies one passport record. IDs are allocated sequentially by
// the store starting at 0 and are never reused after destruction.
type TokenID uint64

// ParseTokenID constructs a TokenID from external input (path segments,
// event payloads).
//
// Errors: returns CodeBadRequest when the value is not a base-10 unsigned
// integer.
func ParseTokenID(s string) (TokenID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "token id must be an unsigned integer")
	}
	return TokenID(n), nil
}

// String returns the decimal representation.
func (id TokenID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
