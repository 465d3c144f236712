// Package domainerrors carries coded errors across the service boundary.
//
// Services return these (usually via New or Wrap) so transports can map a
// failure to a status without string matching. Stores should return
// pkg/platform/sentinel errors instead and let the service translate them.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure that callers can act on.
type Code string

const (
	CodeNotFound                    Code = "not_found"
	CodeInvalidAssociation          Code = "invalid_association"
	CodeCauseNotVisible             Code = "cause_not_visible"
	CodeUnsupportedContributionType Code = "unsupported_contribution_type"
	CodeInvalidAmount               Code = "invalid_amount"
	CodeIllegalTransition           Code = "illegal_transition"
	CodeConflict                    Code = "conflict"
	CodeReceiptGenerationFailed     Code = "receipt_generation_failed"
	CodeReceiptNotYetAvailable      Code = "receipt_not_yet_available"
	CodeReceiptUnavailable          Code = "receipt_unavailable"

	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Message is safe to show to API clients
// except for CodeInternal, whose message is logged but never returned.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode, kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeInternal {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to the status a transport should answer with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidAssociation, CodeUnsupportedContributionType, CodeInvalidAmount,
		CodeValidation, CodeInvalidInput, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeCauseNotVisible, CodeIllegalTransition, CodeConflict,
		CodeReceiptNotYetAvailable:
		return http.StatusConflict
	case CodeReceiptUnavailable:
		return http.StatusGone
	case CodeReceiptGenerationFailed:
		return http.StatusBadGateway
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
