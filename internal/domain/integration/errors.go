package integration

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformUnavailable = errors.New("integration: platform temporarily unavailable")
	ErrRateLimited         = errors.New("integration: platform rate limited")
	ErrInvalidResponse     = errors.New("integration: invalid platform response")

	// Lookup errors used by idempotency checks
	ErrProductNotFound = errors.New("integration: product not found on platform")
	ErrVariantNotFound = errors.New("integration: variant not found on platform")
	ErrOrderNotFound   = errors.New("integration: order not found on platform")

	// Webhook errors
	ErrWebhookSignature = errors.New("integration: invalid webhook signature")
)

// ---------------------------------------------------------------------------
// RetryExhaustedError
// ---------------------------------------------------------------------------

// RetryExhaustedError reports that an operation kept failing transiently until
// the attempt budget ran out. Err holds the error from the final attempt.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

// Error implements the error interface
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("integration: %s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

// Unwrap returns the error from the final attempt
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// AuthenticationError
// ---------------------------------------------------------------------------

// AuthenticationError reports a 401/403 from a platform. Credentials do not
// heal on their own, so these are never retried.
type AuthenticationError struct {
	Platform   string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("integration: %s authentication failed (HTTP %d)", e.Platform, e.StatusCode)
	}
	return fmt.Sprintf("integration: %s authentication failed (HTTP %d): %s", e.Platform, e.StatusCode, e.Message)
}

// ---------------------------------------------------------------------------
// ValidationError
// ---------------------------------------------------------------------------

// FieldError is a single field rejection inside a mutation's userErrors.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports that a platform accepted the request transport-wise
// but rejected its content. These are never retried.
type ValidationError struct {
	Platform  string
	Operation string
	Fields    []FieldError
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "integration: %s rejected %s", e.Platform, e.Operation)
	for i, f := range e.Fields {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		if f.Field != "" {
			b.WriteString(f.Field)
			b.WriteString(": ")
		}
		b.WriteString(f.Message)
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// ConfigError
// ---------------------------------------------------------------------------

// ConfigError reports malformed or unusable engine configuration, including a
// mapping table that fails to parse. It aborts the flow at entry.
type ConfigError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("integration: invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("integration: invalid configuration: %s: %v", e.Reason, e.Err)
}

// Unwrap returns the underlying cause
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// Classification helpers
// ---------------------------------------------------------------------------

// IsRetryable reports whether err is one of the transient classes (network
// failure, 5xx, rate limiting). Authentication, validation and configuration
// failures are permanent and pass through untouched.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPlatformUnavailable) || errors.Is(err, ErrRateLimited)
}

// ErrorCode maps an error to the stable code recorded in SyncFailure entries.
func ErrorCode(err error) string {
	var (
		retryErr  *RetryExhaustedError
		authErr   *AuthenticationError
		validErr  *ValidationError
		configErr *ConfigError
	)
	switch {
	case errors.As(err, &validErr):
		return "VALIDATION_FAILED"
	case errors.As(err, &authErr):
		return "AUTH_FAILED"
	case errors.As(err, &retryErr):
		return "RETRY_EXHAUSTED"
	case errors.As(err, &configErr):
		return "CONFIG_INVALID"
	case errors.Is(err, ErrProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, ErrVariantNotFound):
		return "VARIANT_NOT_FOUND"
	case errors.Is(err, ErrOrderNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, ErrPlatformUnavailable):
		return "PLATFORM_UNAVAILABLE"
	case errors.Is(err, ErrWebhookSignature):
		return "INVALID_SIGNATURE"
	default:
		return "SYNC_FAILED"
	}
}
