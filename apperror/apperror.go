// Package apperror defines a centralized system for application-specific errors.
// Every layer (repositories, services, handlers) reports failures as an *AppError so
// that the HTTP boundary can turn them into a consistent JSON body and status code.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is an enumeration (using `iota`) for different categories of application errors.
type ErrorType int

const (
	// UnknownError is for unspecified errors
	UnknownError ErrorType = iota
	// DatabaseError represents an error originating from the relational store
	DatabaseError
	// ConfigError represents an error related to application configuration
	ConfigError
	// NotFoundError represents a resource not found error
	NotFoundError
	// ValidationError represents an input validation error
	ValidationError
	// BadRequestError represents a generic bad request, e.g. a body that is not JSON
	BadRequestError
	// InternalError represents a generic internal server error
	InternalError
	// MigrationError represents an error during database migrations
	MigrationError
	// ConflictError represents a conflict, e.g. an email that is already taken
	ConflictError
)

// String returns a short name for the error type, used in structured logs.
func (t ErrorType) String() string {
	switch t {
	case DatabaseError:
		return "database"
	case ConfigError:
		return "config"
	case NotFoundError:
		return "not_found"
	case ValidationError:
		return "validation"
	case BadRequestError:
		return "bad_request"
	case InternalError:
		return "internal"
	case MigrationError:
		return "migration"
	case ConflictError:
		return "conflict"
	default:
		return "unknown"
	}
}

// FieldError describes a single invalid field of a request payload.
type FieldError struct {
	Field   string `json:"field" example:"email"`
	Message string `json:"message" example:"must be a valid email address"`
}

// AppError is a custom error type for the application.
// It allows wrapping an underlying error (`Err`) for more detailed debugging while
// only `Message` (and `Details` for validation failures) is ever shown to clients.
type AppError struct {
	Type    ErrorType
	Message string
	Details []FieldError
	Err     error // Underlying error
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error so `errors.Is` and `errors.As` can inspect the chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code appropriate for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case NotFoundError:
		return http.StatusNotFound
	case ValidationError, BadRequestError:
		return http.StatusBadRequest
	case ConflictError:
		return http.StatusConflict
	case DatabaseError, ConfigError, InternalError, MigrationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new AppError. This is a generic constructor.
func NewAppError(errType ErrorType, message string, underlyingError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlyingError,
	}
}

// Constructor functions for specific error types.
// `NewDatabaseError("message", err)` reads better than `NewAppError(DatabaseError, "message", err)`.

// NewDatabaseError creates a new DatabaseError
func NewDatabaseError(message string, underlyingError error) *AppError {
	return NewAppError(DatabaseError, message, underlyingError)
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, underlyingError error) *AppError {
	return NewAppError(ConfigError, message, underlyingError)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(message string, underlyingError error) *AppError {
	return NewAppError(NotFoundError, message, underlyingError)
}

// NewValidationError creates a new ValidationError carrying per-field details.
func NewValidationError(message string, details ...FieldError) *AppError {
	e := NewAppError(ValidationError, message, nil)
	e.Details = details
	return e
}

// NewBadRequestError creates a new BadRequestError
func NewBadRequestError(message string, underlyingError error) *AppError {
	return NewAppError(BadRequestError, message, underlyingError)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, underlyingError error) *AppError {
	return NewAppError(InternalError, message, underlyingError)
}

// NewMigrationError creates a new MigrationError
func NewMigrationError(message string, underlyingError error) *AppError {
	return NewAppError(MigrationError, message, underlyingError)
}

// NewConflictError creates a new ConflictError
func NewConflictError(message string, underlyingError error) *AppError {
	return NewAppError(ConflictError, message, underlyingError)
}

// ErrorResponse represents a generic error response payload for API clients.
type ErrorResponse struct {
	Error   string       `json:"error" example:"A description of the error"`
	Details []FieldError `json:"details,omitempty"`
}

// MessageResponse is the body returned by operations that only confirm success,
// such as soft deletion.
type MessageResponse struct {
	Message string `json:"message" example:"User deleted successfully"`
}

// ToResponse converts an AppError to an ErrorResponse suitable for API responses.
// The underlying `Err` is never included.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Details: e.Details}
}

// FromError extracts an *AppError from err, looking through wrapped errors.
// It returns the *AppError and true if one is found, otherwise nil and false.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Helper functions to check error types.
// These use `errors.As` so they keep working when an AppError is wrapped with `%w`.

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	return isType(err, NotFoundError)
}

// IsValidationError checks if an error is a Validation error
func IsValidationError(err error) bool {
	return isType(err, ValidationError)
}

// IsConflictError checks if an error is a Conflict error
func IsConflictError(err error) bool {
	return isType(err, ConflictError)
}

// IsDatabaseError checks if an error is a Database error
func IsDatabaseError(err error) bool {
	return isType(err, DatabaseError)
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}
