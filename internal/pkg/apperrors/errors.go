package apperrors

import "errors"

// Error kinds surfaced by every synchronous operation
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInternal         = errors.New("internal error")
)

// Token errors, reported to clients as ErrUnauthenticated
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Wire codes for the error kinds
const (
	CodeUnauthenticated  = "unauthenticated"
	CodePermissionDenied = "permission-denied"
	CodeNotFound         = "not-found"
	CodeAlreadyExists    = "already-exists"
	CodeInvalidArgument  = "invalid-argument"
	CodeInternal         = "internal"
)

// Code returns the wire code for err. Unknown errors map to CodeInternal.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenInvalid):
		return CodeUnauthenticated
	case errors.Is(err, ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}

// NewUnauthenticatedError creates a new custom error for a missing or invalid caller
func NewUnauthenticatedError(message string) error {
	return &CustomError{Err: ErrUnauthenticated, Message: message}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{Err: ErrPermissionDenied, Message: message}
}

// NewNotFoundError creates a new custom error for resource not found with a message
func NewNotFoundError(message string) error {
	return &CustomError{Err: ErrNotFound, Message: message}
}

// NewAlreadyExistsError creates a new custom error for duplicate resources with a message
func NewAlreadyExistsError(message string) error {
	return &CustomError{Err: ErrAlreadyExists, Message: message}
}

// NewInvalidArgumentError creates a new custom error for bad input with a message
func NewInvalidArgumentError(message string) error {
	return &CustomError{Err: ErrInvalidArgument, Message: message}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// Message returns the client-facing message of err, falling back to the kind text
func Message(err error) string {
	var custom *CustomError
	if errors.As(err, &custom) {
		return custom.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
