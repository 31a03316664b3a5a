// Package errdef defines the coded errors surfaced across the call boundary.
//
// Every error leaving a component carries a Code so callers can branch on the
// kind of failure, while Error() stays a plain human-readable message.
package errdef

import (
	"errors"
	"fmt"
)

// Code classifies an error.
type Code string

const (
	CodeUnknown         Code = "unknown"
	CodeInvalidHeader   Code = "invalid_header"
	CodeNetwork         Code = "network"
	CodeStore           Code = "store"
	CodeUnknownLanguage Code = "unknown_language"
	CodeRender          Code = "render"
	CodeSerialization   Code = "serialization"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error without a cause.
func New(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the outermost coded error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the text shown to the caller, or "" for a nil error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
