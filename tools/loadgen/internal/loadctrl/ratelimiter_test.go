package loadctrl

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BasicOperation(t *testing.T) {
	limiter := NewTokenBucketLimiter(100, 10)

	assert.True(t, limiter.TryAcquire())
	assert.Equal(t, 100.0, limiter.CurrentRate())
	assert.Equal(t, 10, limiter.BurstSize())

	stats := limiter.Stats()
	assert.Equal(t, int64(1), stats.TotalAcquired)
	assert.Equal(t, int64(0), stats.TotalRejected)
	assert.Equal(t, 100.0, stats.CurrentQPS)
}

func TestTokenBucketLimiter_Defaults(t *testing.T) {
	// Burst defaults to int(qps) when unset.
	limiter := NewTokenBucketLimiter(50, 0)
	assert.Equal(t, 50, limiter.BurstSize())

	// Non-positive qps is clamped to 1, burst to at least 1.
	limiter = NewTokenBucketLimiter(0, 0)
	assert.Equal(t, 1.0, limiter.CurrentRate())
	assert.Equal(t, 1, limiter.BurstSize())
}

func TestTokenBucketLimiter_SetRate(t *testing.T) {
	limiter := NewTokenBucketLimiter(100, 10)

	limiter.SetRate(200)
	assert.Equal(t, 200.0, limiter.CurrentRate())

	limiter.SetRate(0.5)
	assert.Equal(t, 0.5, limiter.CurrentRate())

	// Zero rate clamps to 1.
	limiter.SetRate(0)
	assert.Equal(t, 1.0, limiter.CurrentRate())
}

func TestTokenBucketLimiter_SetBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(10, 5)

	limiter.SetBurst(20)
	assert.Equal(t, 20, limiter.BurstSize())

	limiter.SetBurst(0)
	assert.Equal(t, 1, limiter.BurstSize())
}

func TestTokenBucketLimiter_Acquire(t *testing.T) {
	limiter := NewTokenBucketLimiter(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	require.NoError(t, err)

	stats := limiter.Stats()
	assert.Equal(t, int64(1), stats.TotalAcquired)
}

func TestTokenBucketLimiter_AcquireCancelled(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1)

	// Exhaust the burst so the next Acquire has to wait a full second.
	require.True(t, limiter.TryAcquire())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	assert.Error(t, err)

	// The cancelled wait must not count as an acquisition.
	stats := limiter.Stats()
	assert.Equal(t, int64(1), stats.TotalAcquired)
}

func TestTokenBucketLimiter_TryAcquireRejection(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, 1)

	assert.True(t, limiter.TryAcquire())
	assert.False(t, limiter.TryAcquire())

	stats := limiter.Stats()
	assert.Equal(t, int64(1), stats.TotalAcquired)
	assert.Equal(t, int64(1), stats.TotalRejected)
}

func TestTokenBucketLimiter_Pacing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping pacing test in short mode")
	}

	// 100 QPS with burst 1 spaces deliveries roughly 10ms apart.
	limiter := NewTokenBucketLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	for range 5 {
		require.NoError(t, limiter.Acquire(ctx))
	}
	elapsed := time.Since(start)

	// First slot is free, the remaining four wait ~10ms each.
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)

	stats := limiter.Stats()
	assert.Equal(t, int64(5), stats.TotalAcquired)
	assert.Greater(t, stats.AvgWaitTime, time.Duration(0))
}

func TestTokenBucketLimiter_Concurrency(t *testing.T) {
	limiter := NewTokenBucketLimiter(10000, 10000)

	var wg sync.WaitGroup
	ctx := context.Background()

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = limiter.Acquire(ctx)
			}
		}()
	}
	wg.Wait()

	stats := limiter.Stats()
	assert.Equal(t, int64(1000), stats.TotalAcquired)
}
