// Package domainerrors carries coded domain errors so transports can map
// failures to status codes without string matching, and services can classify
// nested failures with errors.As.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	CodeUnauthorized      Code = "unauthorized"
	CodeAlreadyExists     Code = "already_exists"
	CodeInvalidState      Code = "invalid_state"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeExpired           Code = "expired"
	CodeAlreadyUsed       Code = "already_used"
	CodeTransferFailed    Code = "transfer_failed"
	CodeBadRequest        Code = "bad_request"
	CodeNotFound          Code = "not_found"
	CodeInternal          Code = "internal"
)

// Error is a coded domain error. Message is the user-visible reason string;
// Err, when set, is the wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. Returns nil if err is nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the classification of err, defaulting to CodeInternal for
// uncoded errors and the empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// MessageOf returns the user-visible reason string of err, or err.Error()
// for uncoded errors.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
