// Package loadctrl provides rate control for outbound webhook traffic.
package loadctrl

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces webhook deliveries. Implementations must be safe for
// concurrent use by multiple sender goroutines.
type RateLimiter interface {
	// Acquire blocks until a delivery slot is available or the context is
	// cancelled.
	Acquire(ctx context.Context) error

	// TryAcquire attempts to acquire a delivery slot without blocking.
	TryAcquire() bool

	// SetRate adjusts the target rate. The new rate takes effect immediately.
	SetRate(qps float64)

	// CurrentRate returns the configured rate in deliveries per second.
	CurrentRate() float64

	// Stats returns usage counters for reporting.
	Stats() RateLimiterStats
}

// RateLimiterStats contains counters accumulated by a rate limiter.
type RateLimiterStats struct {
	// TotalAcquired is the number of successful acquisitions.
	TotalAcquired int64
	// TotalRejected is the number of TryAcquire calls that found no token.
	TotalRejected int64
	// CurrentQPS is the configured rate.
	CurrentQPS float64
	// AvgWaitTime is the mean time spent blocked in Acquire.
	AvgWaitTime time.Duration
}

// TokenBucketLimiter implements RateLimiter with a token bucket backed by
// golang.org/x/time/rate. Bursts up to the bucket size pass without waiting,
// sustained throughput converges on the configured QPS.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
	burst   int
	qps     float64
	mu      sync.RWMutex

	totalAcquired atomic.Int64
	totalRejected atomic.Int64
	totalWaitNs   atomic.Int64
	waitCount     atomic.Int64
}

// NewTokenBucketLimiter creates a limiter targeting qps deliveries per second
// with the given burst size. A burst of 0 defaults to max(1, int(qps)), and a
// non-positive qps is clamped to 1.
func NewTokenBucketLimiter(qps float64, burst int) *TokenBucketLimiter {
	if burst <= 0 {
		burst = max(1, int(qps))
	}
	if qps <= 0 {
		qps = 1
	}
	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
		burst:   burst,
		qps:     qps,
	}
}

// Acquire blocks until a delivery slot is available or the context is cancelled.
func (l *TokenBucketLimiter) Acquire(ctx context.Context) error {
	start := time.Now()
	err := l.limiter.Wait(ctx)
	if err == nil {
		l.totalAcquired.Add(1)
		l.totalWaitNs.Add(int64(time.Since(start)))
		l.waitCount.Add(1)
	}
	return err
}

// TryAcquire attempts to acquire a delivery slot without blocking.
func (l *TokenBucketLimiter) TryAcquire() bool {
	if l.limiter.Allow() {
		l.totalAcquired.Add(1)
		return true
	}
	l.totalRejected.Add(1)
	return false
}

// SetRate adjusts the target rate. Non-positive values are clamped to 1.
func (l *TokenBucketLimiter) SetRate(qps float64) {
	if qps <= 0 {
		qps = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.qps = qps
	l.limiter.SetLimit(rate.Limit(qps))
}

// CurrentRate returns the configured rate in deliveries per second.
func (l *TokenBucketLimiter) CurrentRate() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.qps
}

// BurstSize returns the configured burst size.
func (l *TokenBucketLimiter) BurstSize() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.burst
}

// SetBurst adjusts the burst size. Non-positive values are clamped to 1.
func (l *TokenBucketLimiter) SetBurst(burst int) {
	if burst <= 0 {
		burst = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.burst = burst
	l.limiter.SetBurst(burst)
}

// Stats returns usage counters for reporting.
func (l *TokenBucketLimiter) Stats() RateLimiterStats {
	acquired := l.totalAcquired.Load()
	rejected := l.totalRejected.Load()
	totalWait := l.totalWaitNs.Load()
	waits := l.waitCount.Load()

	var avgWait time.Duration
	if waits > 0 {
		avgWait = time.Duration(totalWait / waits)
	}

	l.mu.RLock()
	qps := l.qps
	l.mu.RUnlock()

	return RateLimiterStats{
		TotalAcquired: acquired,
		TotalRejected: rejected,
		CurrentQPS:    qps,
		AvgWaitTime:   avgWait,
	}
}
