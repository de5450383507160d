package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeConfig is used when a sync run is rejected because the
	// attribute mapping or connection settings are invalid
	ErrCodeConfig = "ERR_CONFIG"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeWebhookSignature is used when a webhook delivery fails HMAC verification
	ErrCodeWebhookSignature = "ERR_WEBHOOK_SIGNATURE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeSyncRunning is used when a sync flow is triggered while a
	// previous run of the same flow is still in progress
	ErrCodeSyncRunning = "ERR_SYNC_RUNNING"
)

// Upstream platform error codes
const (
	// ErrCodeUpstreamAuth is used when a platform rejects our credentials
	ErrCodeUpstreamAuth = "ERR_UPSTREAM_AUTH"
	// ErrCodeUpstreamValidation is used when a platform rejects a payload
	ErrCodeUpstreamValidation = "ERR_UPSTREAM_VALIDATION"
	// ErrCodeUpstreamUnavailable is used when a platform stays unreachable
	// after retries are exhausted
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeTooManyRequests is an alias for rate limiting
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeConfig:   http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeWebhookSignature: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:    http.StatusNotFound,
	ErrCodeConflict:    http.StatusConflict,
	ErrCodeSyncRunning: http.StatusConflict,

	// Upstream platform errors
	ErrCodeUpstreamAuth:        http.StatusBadGateway,
	ErrCodeUpstreamValidation:  http.StatusUnprocessableEntity,
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
