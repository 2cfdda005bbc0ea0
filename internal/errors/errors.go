// Package errors defines structured error types for the API.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/maruel/jsoncms/internal/entity"
	"github.com/maruel/jsoncms/internal/jsonldb"
	"github.com/maruel/jsoncms/internal/registry"
	"github.com/maruel/jsoncms/internal/storage"
	"github.com/maruel/jsoncms/internal/storage/git"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrUnknownField is returned when a lookup names an undeclared field
	ErrUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrNotFound is returned when a record, an entity type or a revision is not found
	ErrNotFound ErrorCode = "NOT_FOUND"

	// ErrStorageError is returned when a backing document is missing or cannot be parsed
	ErrStorageError ErrorCode = "STORAGE_ERROR"
	// ErrSchemaConfig is returned when an entity declaration is invalid
	ErrSchemaConfig ErrorCode = "SCHEMA_CONFIG"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrRateLimited is returned when a client sent too many requests
	ErrRateLimited ErrorCode = "RATE_LIMITED"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Message returns the message shown to clients, without the wrapped error.
func (e *APIError) Message() string {
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// NothingTo creates the 404 returned when an edit or delete target is absent.
func NothingTo(action, typeName, id string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("nothing to %s: no %s with id %q", action, typeName, id)).
		WithDetail("type", typeName).
		WithDetail("id", id)
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// RateLimited creates a 429 Too Many Requests error.
func RateLimited(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "too many requests").
		WithDetail("retry_after", retryAfter)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// FromError maps an error returned by the admin layer to an API error.
//
// Storage failures keep a generic message; the cause is only logged.
func FromError(err error) *APIError {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, registry.ErrUnknownType):
		return NewAPIError(http.StatusNotFound, ErrNotFound, err.Error())
	case errors.Is(err, git.ErrRevisionNotFound):
		return NewAPIError(http.StatusNotFound, ErrNotFound, err.Error())
	case errors.Is(err, storage.ErrUnknownField):
		return NewAPIError(http.StatusBadRequest, ErrUnknownField, err.Error())
	case errors.Is(err, jsonldb.ErrStorage):
		return NewAPIError(http.StatusInternalServerError, ErrStorageError, "storage failure").Wrap(err)
	case errors.Is(err, entity.ErrSchemaConfig):
		return NewAPIError(http.StatusInternalServerError, ErrSchemaConfig, "invalid entity configuration").Wrap(err)
	default:
		return NewAPIError(http.StatusInternalServerError, ErrInternal, "internal error").Wrap(err)
	}
}
