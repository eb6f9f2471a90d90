package common

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across services
var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("resource conflict")
	ErrOfferMismatch       = errors.New("offer does not belong to this captain")
	ErrDispatchUnavailable = errors.New("dispatch queue unavailable")
	ErrInvalidToken        = errors.New("invalid token")
	ErrRevokedToken        = errors.New("revoked token")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// Machine-readable error codes surfaced in API responses
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeOfferMismatch       = "OFFER_MISMATCH"
	CodeDispatchUnavailable = "DISPATCH_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped error for errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, errorCode, message string, err error) *AppError {
	return &AppError{
		Code:      code,
		ErrorCode: errorCode,
		Message:   message,
		Err:       err,
	}
}

// NewValidationError creates a 400 error for malformed input. Not retried by clients.
func NewValidationError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeValidation, message, ErrValidation)
}

// NewUnauthorizedError creates a 401 error for failed token validation
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

// NewForbiddenError creates a 403 error for insufficient permissions
func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, CodeForbidden, message, ErrForbidden)
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrConflict)
}

// NewOfferMismatchError creates a 409 error for a stale or foreign accept attempt.
// The ride's status is left untouched; the client should re-poll.
func NewOfferMismatchError(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeOfferMismatch, message, ErrOfferMismatch)
}

// NewDispatchUnavailableError creates a 503 error after publish retries are
// exhausted. The request is not silently lost; the caller must retry.
func NewDispatchUnavailableError(message string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, CodeDispatchUnavailable, message, ErrDispatchUnavailable)
}

// NewInternalServerError creates a 500 error
func NewInternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, message, nil)
}
