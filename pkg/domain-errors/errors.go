// Package dErrors defines the coded error taxonomy shared by every service.
// Codes classify outcomes for transport mapping and audit; the wrapped cause
// stays reachable through errors.Is and errors.As.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeUnauthenticated marks requests whose credentials resolved to no
	// principal on an operation that requires one.
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodeAuthorizationDenied marks writes rejected by policy. Denied reads
	// degrade to not-found or empty results instead of carrying this code.
	CodeAuthorizationDenied Code = "AUTHORIZATION_DENIED"
	// CodeEscalationDenied marks tier mutations rejected by the escalation
	// guard.
	CodeEscalationDenied Code = "ESCALATION_DENIED"
	// CodeCodeAlreadyRedeemed marks redemption of an enrollment code that is
	// already bound to a principal.
	CodeCodeAlreadyRedeemed Code = "CODE_ALREADY_REDEEMED"
	// CodeCodeInactive marks use of a deactivated enrollment code.
	CodeCodeInactive Code = "CODE_INACTIVE"

	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeInternal     Code = "INTERNAL"
)

// Error is a coded domain error. Message is safe to return to clients; the
// wrapped cause is for logs only.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Unwrap()
	}
	return false
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeAuthorizationDenied, CodeEscalationDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeCodeAlreadyRedeemed:
		return http.StatusConflict
	case CodeCodeInactive:
		return http.StatusGone
	case CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
