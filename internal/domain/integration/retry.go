package integration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// RetryPolicy
// ---------------------------------------------------------------------------

const (
	// DefaultRetryAttempts is the default attempt ceiling for remote calls
	DefaultRetryAttempts = 3
	// DefaultRetryBaseDelay is the delay before the second attempt
	DefaultRetryBaseDelay = time.Second
)

// RetryPolicy bounds the retrying of transient remote failures. The delay
// before attempt i (1-indexed, i >= 2) is BaseDelay * 2^(i-2): a pure
// exponential series with no jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns the standard three-attempt policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryAttempts,
		BaseDelay:   DefaultRetryBaseDelay,
	}
}

// backoff returns the sleep after the given failed attempt (1-indexed).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<(attempt-1))
}

// normalized guards against zero-valued policies coming from config.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultRetryAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetryBaseDelay
	}
	return p
}

// ---------------------------------------------------------------------------
// Retry executor
// ---------------------------------------------------------------------------

// Retry runs fn until it succeeds, fails permanently, or the policy's attempt
// ceiling is reached. Only errors classified by IsRetryable are retried;
// authentication, validation and configuration failures return immediately.
// Every failed attempt is reported to the monitor before the executor
// sleeps. Exhaustion surfaces as *RetryExhaustedError wrapping the final
// attempt's error.
//
// Callers wrap every remote write and every paginated list fetch with Retry.
// Cheap single-entity idempotency-check reads go out bare.
func Retry[T any](ctx context.Context, policy RetryPolicy, m Monitor, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		lastErr = err

		m.Warn("transient failure, will retry",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Error(err),
		)
		m.Metric(ctx, MetricRetryAttempts, 1, attribute.String("operation", operation))

		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-time.After(policy.backoff(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, &RetryExhaustedError{
		Operation: operation,
		Attempts:  policy.MaxAttempts,
		Err:       lastErr,
	}
}

// RetryNoResult is Retry for operations that only return an error.
func RetryNoResult(ctx context.Context, policy RetryPolicy, m Monitor, operation string, fn func(context.Context) error) error {
	_, err := Retry(ctx, policy, m, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
