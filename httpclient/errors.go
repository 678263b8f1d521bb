package httpclient

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/authguard/errors"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a rejected request (other 4xx) or one that
	// could not be built.
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
	// ErrCodeCircuitOpen indicates the call was not attempted.
	ErrCodeCircuitOpen
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	case ErrCodeCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error is a structured HTTP client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 for connection-level errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Body is the original response body (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Err: err}
}

// NewCircuitOpenError creates an error for a call rejected by the circuit breaker.
func NewCircuitOpenError(err error) *Error {
	return &Error{Code: ErrCodeCircuitOpen, Message: err.Error(), Err: err}
}

// NewValidationError creates a validation error.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	var code ErrorCode
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		code = ErrCodeRateLimit
	case statusCode >= 400 && statusCode < 500:
		code = ErrCodeValidation
	default:
		code = ErrCodeServer
	}
	return &Error{
		StatusCode: statusCode,
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Body:       body,
	}
}

func codeOf(err error) (ErrorCode, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Code, true
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeTimeout
}

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeAuth
}

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool {
	c, ok := codeOf(err)
	return ok && c == ErrCodeServer
}

// IsUnavailable reports whether err means the remote side could not give an
// answer at all: timeouts, connection failures, 5xx, 429 and open circuits.
// A 4xx rejection is an answer and is not unavailability.
func IsUnavailable(err error) bool {
	c, ok := codeOf(err)
	if !ok {
		return err != nil
	}
	switch c {
	case ErrCodeTimeout, ErrCodeConnection, ErrCodeServer, ErrCodeRateLimit, ErrCodeCircuitOpen:
		return true
	default:
		return false
	}
}

// ToAppError maps a client error onto the application error model. service
// names the remote side in messages.
func ToAppError(service string, err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if ae, ok := apperrors.AsAppError(err); ok {
		return ae
	}
	c, ok := codeOf(err)
	if !ok {
		return apperrors.ExternalServiceError(service, err)
	}
	switch c {
	case ErrCodeTimeout:
		return apperrors.Timeout(service).WithCause(err)
	case ErrCodeConnection, ErrCodeCircuitOpen, ErrCodeRateLimit:
		return apperrors.ServiceUnavailable(service).WithCause(err)
	case ErrCodeAuth:
		return apperrors.Unauthorized(service + " rejected the credentials").WithCause(err)
	case ErrCodeValidation, ErrCodeNotFound:
		return apperrors.InvalidInput("request", err.Error()).WithCause(err)
	default:
		return apperrors.ExternalServiceError(service, err)
	}
}
