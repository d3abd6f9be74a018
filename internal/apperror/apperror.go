// Package apperror defines the domain error taxonomy shared by the services
// and translated to HTTP status codes by the handler layer.
//
// Services return *AppError values (usually wrapped with fmt.Errorf("...: %w")).
// Callers test the category with errors.Is against the sentinels below and read
// the human-readable Message with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrServiceFailure     = errors.New("service failure")
)

type AppError struct {
	Err     error  // category sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying infrastructure error, never shown to callers
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record. The message is the one clients see, so
// it stays generic ("User not found", "Item not found").
func NotFound(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// MissingFields is the InvalidInput variant raised when required item fields
// are absent.
func MissingFields() *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "Missing required fields",
	}
}

func DuplicateEmail() *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: "Email already exists",
		Field:   "email",
	}
}

// InvalidCredentials is returned both for an unknown email and for a wrong
// password so callers cannot tell the two apart.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// Conflict is raised by store adapters when a unique index rejects a write.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict on %s", resource, key),
	}
}

// ServiceFailure wraps an unexpected infrastructure error. Message is generic;
// the cause is kept for server-side logging only.
func ServiceFailure(cause error) *AppError {
	return &AppError{
		Err:     ErrServiceFailure,
		Message: "Server error",
		Cause:   cause,
	}
}
