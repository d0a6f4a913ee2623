// Package errors defines the typed error taxonomy shared by the ledger
// services and the HTTP layer. Every rejected operation surfaces as a
// ServiceError so callers can distinguish "connect a wallet" from "request
// access" without string matching.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a ServiceError.
type Code string

const (
	// CodeValidation indicates malformed input. No mutation occurred.
	CodeValidation Code = "validation"

	// CodeNotFound indicates the referenced product does not exist.
	CodeNotFound Code = "not_found"

	// CodeUnauthenticated indicates the operation requires an active
	// identity and none is selected.
	CodeUnauthenticated Code = "unauthenticated"

	// CodeUnauthorized indicates the active identity is neither the admin
	// nor a member of the authorization set.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden indicates an admin-only operation was attempted by a
	// non-admin identity.
	CodeForbidden Code = "forbidden"

	// CodeUnknownIdentity indicates the identity is not in the connected
	// set of the session.
	CodeUnknownIdentity Code = "unknown_identity"

	// CodeConnection indicates the identity provider could not be reached.
	CodeConnection Code = "connection"

	// CodeRateLimited indicates the caller exceeded the request budget.
	CodeRateLimited Code = "rate_limited"

	// CodeInternal indicates an unexpected failure.
	CodeInternal Code = "internal"
)

// ServiceError is the canonical error type crossing service boundaries.
type ServiceError struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// Error implements error.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ServiceError with the same code. This lets
// callers write errors.Is(err, errors.NotFound("")) style checks.
func (e *ServiceError) Is(target error) bool {
	var se *ServiceError
	if !errors.As(target, &se) {
		return false
	}
	return e.Code == se.Code
}

// WithDetails attaches a key/value pair and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps the error code to an HTTP response status.
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeUnknownIdentity:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized, CodeForbidden:
		return http.StatusForbidden
	case CodeConnection:
		return http.StatusBadGateway
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Validation constructs a malformed-input error.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message}
}

// NotFound constructs a missing-resource error.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message}
}

// Unauthenticated constructs a no-active-identity error.
func Unauthenticated(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthenticated, Message: message}
}

// Unauthorized constructs a missing-permission error.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message}
}

// Forbidden constructs an admin-only error.
func Forbidden(message string) *ServiceError {
	return &ServiceError{Code: CodeForbidden, Message: message}
}

// UnknownIdentity constructs an identity-not-connected error.
func UnknownIdentity(address string) *ServiceError {
	return &ServiceError{
		Code:    CodeUnknownIdentity,
		Message: fmt.Sprintf("identity %s is not connected", address),
	}
}

// Connection constructs a provider-unreachable error.
func Connection(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeConnection, Message: message, Err: err}
}

// RateLimitExceeded constructs a throttling error.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return (&ServiceError{Code: CodeRateLimited, Message: "rate limit exceeded"}).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal constructs an unexpected-failure error wrapping its cause.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, Err: err}
}

// GetServiceError extracts a ServiceError from err, or nil when err carries
// no taxonomy information.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// CodeOf returns the taxonomy code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if se := GetServiceError(err); se != nil {
		return se.Code
	}
	return CodeInternal
}
