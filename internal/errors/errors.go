// Package errors provides structured errors for pampax.
//
// Every error that reaches the CLI boundary carries one of the fixed
// envelope codes so commands can emit {error: {code, message, hint}}
// without inspecting error origins.
package errors

import (
	"errors"
	"fmt"
)

// Code is the fixed enumeration surfaced in the CLI JSON envelope.
type Code string

const (
	CodeInvalidInput   Code = "INVALID_INPUT"
	CodeNotFound       Code = "NOT_FOUND"
	CodeIndexMissing   Code = "INDEX_MISSING"
	CodeDB             Code = "DB_ERROR"
	CodeIO             Code = "IO_ERROR"
	CodeConfig         Code = "CONFIG_ERROR"
	CodeEmbedding      Code = "EMBEDDING_ERROR"
	CodeSearch         Code = "SEARCH_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Error is the structured error type for pampax.
type Error struct {
	Code    Code
	Message string
	Hint    string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrap layers.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithHint attaches an actionable hint and returns the error for chaining.
func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

// New creates an Error with the given code and message.
func New(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error from an existing error, keeping its message.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error(), Cause: err}
}

// InvalidInput creates an INVALID_INPUT error.
func InvalidInput(message string) *Error {
	return &Error{Code: CodeInvalidInput, Message: message}
}

// NotFound creates a NOT_FOUND error.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// IndexMissing creates an INDEX_MISSING error.
func IndexMissing(message string) *Error {
	return &Error{Code: CodeIndexMissing, Message: message}
}

// ConfigError creates a CONFIG_ERROR.
func ConfigError(message string, cause error) *Error {
	return &Error{Code: CodeConfig, Message: message, Cause: cause}
}

// IOError creates an IO_ERROR.
func IOError(message string, cause error) *Error {
	return &Error{Code: CodeIO, Message: message, Cause: cause}
}

// DBError creates a DB_ERROR.
func DBError(message string, cause error) *Error {
	return &Error{Code: CodeDB, Message: message, Cause: cause}
}

// EmbeddingError creates an EMBEDDING_ERROR.
func EmbeddingError(message string, cause error) *Error {
	return &Error{Code: CodeEmbedding, Message: message, Cause: cause}
}

// SearchError creates a SEARCH_ERROR.
func SearchError(message string, cause error) *Error {
	return &Error{Code: CodeSearch, Message: message, Cause: cause}
}

// Internal creates an INTERNAL_ERROR.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, Cause: cause}
}

// CodeOf extracts the envelope code from any error.
// Foreign errors map to INTERNAL_ERROR.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

// HintOf extracts the hint from an error, if any.
func HintOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Hint
	}
	return ""
}
