package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable). These are what a failed session probe
// produces when the auth backend cannot be reached.
const (
	// ErrCodeServiceUnavailable indicates the auth backend is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the backend call timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeExternalService indicates the backend answered with a server error.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Session errors. The backend has spoken and the caller is not signed in.
const (
	// ErrCodeUnauthorized indicates the request carries no usable session.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidToken indicates the session token failed verification.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	// ErrCodeTokenExpired indicates the session token has expired and could not be refreshed.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)

// Input and internal errors.
const (
	// ErrCodeInvalidInput indicates invalid configuration or request input.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
}

var sessionCodes = map[ErrorCode]bool{
	ErrCodeUnauthorized: true,
	ErrCodeInvalidToken: true,
	ErrCodeTokenExpired: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// IsSessionCode returns true if the code means "no valid session" rather
// than "backend could not answer".
func IsSessionCode(code ErrorCode) bool {
	return sessionCodes[code]
}
