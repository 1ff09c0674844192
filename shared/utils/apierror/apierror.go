package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an API error for status mapping
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindStorage    Kind = "storage"
)

// AppError is the single error type that crosses the service/API boundary.
// The API layer maps it to an HTTP status and a user-facing message; anything
// that is not an AppError is treated as an unexpected 500.
type AppError struct {
	Kind       Kind     `json:"-"`
	Message    string   `json:"message"`
	StatusCode int      `json:"statusCode"`
	Errors     []string `json:"errors,omitempty"`
	cause      error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// NotFound signals an absent entity (HTTP 404)
func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message, StatusCode: http.StatusNotFound}
}

// Validation signals malformed input (HTTP 400)
func Validation(message string, details ...string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, StatusCode: http.StatusBadRequest, Errors: details}
}

// Conflict signals a uniqueness violation (HTTP 409)
func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message, StatusCode: http.StatusConflict}
}

// Auth signals an invalid or expired token (HTTP 401)
func Auth(message string) *AppError {
	return &AppError{Kind: KindAuth, Message: message, StatusCode: http.StatusUnauthorized}
}

// Storage wraps a database or filesystem fault (HTTP 500). The cause is
// logged server-side; clients only see the generic message.
func Storage(cause error) *AppError {
	return &AppError{
		Kind:       KindStorage,
		Message:    "storage failure",
		StatusCode: http.StatusInternalServerError,
		cause:      cause,
	}
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// From extracts an AppError, or wraps err as an unexpected 500 with a
// genericized message so internals never leak to clients.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Kind:       KindStorage,
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		cause:      err,
	}
}
