package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProcessing ErrorType = "processing"
	ErrorTypeInternal   ErrorType = "internal"

	// Remote model failures
	ErrorTypeAuth           ErrorType = "auth"
	ErrorTypeRateLimited    ErrorType = "rate_limited"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeUpstreamFormat ErrorType = "upstream_format"
	ErrorTypeUpstream       ErrorType = "upstream"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, code int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: code,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewNetworkError creates an error for failed image fetches
func NewNetworkError(message string, cause error) *AppError {
	return newError(ErrorTypeNetwork, http.StatusBadGateway, message, cause)
}

// NewProcessingError creates a new processing error
func NewProcessingError(message string, cause error) *AppError {
	return newError(ErrorTypeProcessing, http.StatusUnprocessableEntity, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewAuthError is returned when the remote API rejects the caller's key
func NewAuthError(message string, cause error) *AppError {
	return newError(ErrorTypeAuth, http.StatusBadGateway, message, cause)
}

// NewRateLimitedError is returned when the remote API throttles the caller
func NewRateLimitedError(message string, cause error) *AppError {
	return newError(ErrorTypeRateLimited, http.StatusTooManyRequests, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewTransportError is returned when the remote API could not be reached
func NewTransportError(message string, cause error) *AppError {
	return newError(ErrorTypeTransport, http.StatusBadGateway, message, cause)
}

// NewUpstreamFormatError is returned when the remote API answered with a body
// that lacks the expected fields
func NewUpstreamFormatError(message string, cause error) *AppError {
	return newError(ErrorTypeUpstreamFormat, http.StatusBadGateway, message, cause)
}

// NewUpstreamError covers every other non-success answer from the remote API
func NewUpstreamError(message string, cause error) *AppError {
	return newError(ErrorTypeUpstream, http.StatusBadGateway, message, cause)
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	return KindOf(err) == errorType
}

// KindOf returns the ErrorType of the first AppError in the chain, or
// ErrorTypeInternal when there is none.
func KindOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// MessageOf returns the user-facing message of the first AppError in the
// chain, or err.Error() when there is none.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
