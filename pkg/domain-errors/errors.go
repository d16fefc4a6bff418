// Package domainerrors defines the coded error type used across service and
// transport layers. Stores return sentinel errors; services translate them
// into coded errors; the HTTP layer maps codes onto status responses.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Codes are part of the external contract:
// API clients branch on them, so renaming one is a breaking change.
type Code string

const (
	// CodeInvalidOwner rejects the null identity or a malformed owner address.
	CodeInvalidOwner Code = "invalid_owner"
	// CodeDuplicateOwner rejects a second passport for an owner that already
	// holds one.
	CodeDuplicateOwner Code = "duplicate_owner"
	// CodeNotFound signals an unknown token id or owner.
	CodeNotFound Code = "not_found"
	// CodeNonTransferable is returned unconditionally by every
	// transfer-shaped operation. Passports are soulbound.
	CodeNonTransferable Code = "non_transferable"
	// CodeUnauthorized rejects a caller that is not the ledger authority (or,
	// for destroy, not the record owner).
	CodeUnauthorized Code = "unauthorized"
	// CodePaused rejects mutations while the ledger pause switch is on.
	CodePaused Code = "paused"
	// CodeEmptyBatch rejects a batch mint with no entries.
	CodeEmptyBatch Code = "empty_batch"
	// CodeBatchTooLarge rejects a batch mint above the fixed cap.
	CodeBatchTooLarge Code = "batch_too_large"

	// CodeBadRequest covers malformed transport input that never reaches
	// domain logic.
	CodeBadRequest Code = "bad_request"
	// CodeInternal covers unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-facing message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (anywhere in its chain) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability:
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message from err, falling back to a
// generic message so internal details never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
