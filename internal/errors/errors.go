package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Validation
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidPayload   ErrorCode = "INVALID_PAYLOAD"
	ErrCodeMissingSessionID ErrorCode = "MISSING_SESSION_ID"
	ErrCodeUnknownEventType ErrorCode = "UNKNOWN_EVENT_TYPE"
	ErrCodeMissingRequired  ErrorCode = "MISSING_REQUIRED"

	// Request lifecycle
	ErrCodeRequestNotPending ErrorCode = "REQUEST_NOT_PENDING"
	ErrCodeNoActiveSession   ErrorCode = "NO_ACTIVE_SESSION"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Collaborators
	ErrCodePresentationFailed ErrorCode = "PRESENTATION_FAILED"
	ErrCodeBridge             ErrorCode = "BRIDGE_ERROR"
	ErrCodeExternal           ErrorCode = "EXTERNAL_SERVICE_ERROR"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeStorage  ErrorCode = "STORAGE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

func InvalidPayload(reason string) *AppError {
	return New(ErrCodeInvalidPayload, fmt.Sprintf("Invalid payload: %s", reason))
}

func MissingSessionID() *AppError {
	return New(ErrCodeMissingSessionID, "Payload has no session id")
}

func UnknownEventType(eventType string) *AppError {
	return New(ErrCodeUnknownEventType, fmt.Sprintf("Unknown event type: %s", eventType))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RequestNotPending(sessionID string) *AppError {
	return New(ErrCodeRequestNotPending, fmt.Sprintf("No pending request for session %s", sessionID))
}

func NoActiveSession() *AppError {
	return New(ErrCodeNoActiveSession, "No active session")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func PresentationFailed(cause error) *AppError {
	return Wrap(ErrCodePresentationFailed, "Failed to present notification", cause)
}

func Bridge(cause error) *AppError {
	return Wrap(ErrCodeBridge, "Device bridge error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Storage(cause error) *AppError {
	return Wrap(ErrCodeStorage, "Storage error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
