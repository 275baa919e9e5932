package clerk

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	// codec errors: a single account blob could not be decoded
	TruncatedBuffer ErrorCode = "truncated-buffer"
	InvalidEncoding ErrorCode = "invalid-encoding"
	UnknownVariant  ErrorCode = "unknown-variant"
	UnknownTag      ErrorCode = "unknown-tag"

	// the whole operation cannot proceed
	FetchFailed         ErrorCode = "fetch-failed"
	DerivationExhausted ErrorCode = "derivation-exhausted"

	// domain errors
	ValidationFailed ErrorCode = "validation-failed"
	AddressMismatch  ErrorCode = "address-mismatch"

	BadRequest   ErrorCode = "bad-request"
	NotAvailable ErrorCode = "not-available"
	NotFound     ErrorCode = "not-found"
	DBConflict   ErrorCode = "db-conflict"
	UnknownError ErrorCode = "unknown-error"
)

type ErrorInfo struct {
	Code    ErrorCode // machine-readble ErrorCode enumeration
	Message string    // human-readable debug message
	Account Address   // account the error relates to (zero if none)
}

func (e *ErrorInfo) Error() string {
	if e.Account.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Account, e.Message)
}

func NewErr(code ErrorCode, format string, args ...any) error {
	return &ErrorInfo{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithAccount tags err with the address of the account it relates to.
// Errors that are not *ErrorInfo become UnknownError.
func WithAccount(err error, account Address) error {
	if err == nil {
		return nil
	}
	var info *ErrorInfo
	if errors.As(err, &info) {
		return &ErrorInfo{Code: info.Code, Message: info.Message, Account: account}
	}
	return &ErrorInfo{Code: UnknownError, Message: err.Error(), Account: account}
}

// CodeOf returns the ErrorCode carried by err, or UnknownError.
func CodeOf(err error) ErrorCode {
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info.Code
	}
	return UnknownError
}

func IsNotFoundError(err error) bool {
	return IsError(err, NotFound)
}

func IsFetchFailed(err error) bool {
	return IsError(err, FetchFailed)
}

func IsValidationError(err error) bool {
	return IsError(err, ValidationFailed)
}

func IsError(err error, ofType ErrorCode) bool {
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info.Code == ofType
	}
	return false
}
