// Package apierr carries machine-readable error codes for input-validation
// failures (§7's "surface to the caller with a machine-readable code and a
// human message"), so the HTTP layer can map them to status codes without
// string-matching error text.
//
// Grounded on the teacher's internal/interfaces/http request/response
// pattern of a typed, coded error surfaced at the API boundary.
package apierr

import "fmt"

// Code is a stable, machine-readable identifier for an input-validation
// failure.
type Code string

const (
	CodeMissingColumn     Code = "missing_column"
	CodeUnparseableTime   Code = "unparseable_time"
	CodeInvalidCondition  Code = "invalid_condition"
	CodeInvalidRange      Code = "invalid_range"
	CodeMalformedRequest  Code = "malformed_request"
)

// Error wraps a Code and a human message. Per-combination worker failures
// are never surfaced this way: they are trapped and recorded as a
// zero-result (see internal/optimize), this type is only for input-level
// failures.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error wrapping a lower-level cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// StatusCode maps a Code to the HTTP status the httpapi layer should return.
func StatusCode(code Code) int {
	switch code {
	case CodeMissingColumn, CodeUnparseableTime, CodeInvalidCondition, CodeInvalidRange, CodeMalformedRequest:
		return 400
	default:
		return 500
	}
}
