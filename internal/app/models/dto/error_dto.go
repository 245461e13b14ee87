package dto

import (
	"fmt"
	"time"

	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

// ErrorCode represents standardized error codes
type ErrorCode string

// Error codes share their text with apperrors wire codes
const (
	ErrorCodeUnauthenticated  ErrorCode = apperrors.CodeUnauthenticated
	ErrorCodePermissionDenied ErrorCode = apperrors.CodePermissionDenied
	ErrorCodeNotFound         ErrorCode = apperrors.CodeNotFound
	ErrorCodeAlreadyExists    ErrorCode = apperrors.CodeAlreadyExists
	ErrorCodeInvalidArgument  ErrorCode = apperrors.CodeInvalidArgument
	ErrorCodeInternal         ErrorCode = apperrors.CodeInternal
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Field     string      `json:"field,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	DebugInfo string      `json:"debugInfo,omitempty"`
}

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success   bool         `json:"success"`
	Error     *ErrorDetail `json:"error"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewErrorDetail creates a new error detail
func NewErrorDetail(code ErrorCode, message string) *ErrorDetail {
	return &ErrorDetail{
		Code:    code,
		Message: message,
	}
}

// WithField adds a field name to the error detail
func (e *ErrorDetail) WithField(field string) *ErrorDetail {
	e.Field = field
	return e
}

// WithDetails adds additional details to the error
func (e *ErrorDetail) WithDetails(details interface{}) *ErrorDetail {
	e.Details = details
	return e
}

// WithDebugInfo adds debug information (for development/testing only)
func (e *ErrorDetail) WithDebugInfo(format string, args ...interface{}) *ErrorDetail {
	e.DebugInfo = fmt.Sprintf(format, args...)
	return e
}

// NewErrorResponse creates a standard error response
func NewErrorResponse(errorDetail *ErrorDetail) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     errorDetail,
		Timestamp: time.Now(),
	}
}

// FieldError describes one failed validation rule
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
