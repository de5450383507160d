package pool

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()

	p := New(cfg)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPoolAddStampsTTL(t *testing.T) {
	p := newTestPool(t, Config{TTL: time.Hour})

	pv := NewParameterValue("gid://shopify/Product/1", SemanticTypeProductID)
	require.NoError(t, p.Add(pv))

	assert.True(t, pv.ExpiresAt.Equal(pv.CreatedAt.Add(time.Hour)),
		"values without an expiry of their own get the pool TTL")
}

func TestPoolAddKeepsOwnExpiry(t *testing.T) {
	p := newTestPool(t, Config{TTL: time.Hour})

	pv := NewParameterValue("gid://shopify/Product/2", SemanticTypeProductID)
	own := pv.CreatedAt.Add(time.Minute)
	pv.ExpiresAt = own
	require.NoError(t, p.Add(pv))

	assert.True(t, pv.ExpiresAt.Equal(own))
}

func TestPoolZeroTTLNeverExpires(t *testing.T) {
	p := newTestPool(t, Config{})

	pv := NewParameterValue("gid://shopify/Product/3", SemanticTypeProductID)
	require.NoError(t, p.Add(pv))

	assert.True(t, pv.ExpiresAt.IsZero())
	assert.False(t, pv.IsExpired())
}

func TestPoolAddRejectsMissingType(t *testing.T) {
	p := newTestPool(t, Config{})

	assert.Error(t, p.Add(&ParameterValue{Value: "x"}))
	assert.Error(t, p.Add(nil))
}

func TestPoolDrawThenRetire(t *testing.T) {
	p := newTestPool(t, Config{})

	pv := NewParameterValue("gid://shopify/Product/9", SemanticTypeProductID).
		WithSource("products/create", "data.id")
	require.NoError(t, p.Add(pv))

	got, err := p.GetRandom(SemanticTypeProductID)
	require.NoError(t, err)
	require.Same(t, pv, got, "draws hand back the pooled pointer")

	assert.True(t, p.Remove(got))
	assert.False(t, p.Remove(got), "an identifier retires once")

	got, err = p.GetRandom(SemanticTypeProductID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPoolGetRandomUnknownType(t *testing.T) {
	p := newTestPool(t, Config{})

	got, err := p.GetRandom(SemanticTypeOrderID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPoolTypesAndCounts(t *testing.T) {
	p := newTestPool(t, Config{})

	for i := range 3 {
		require.NoError(t, p.Add(NewParameterValue(fmt.Sprintf("p%d", i), SemanticTypeProductID)))
	}
	require.NoError(t, p.Add(NewParameterValue("SKU-00001", SemanticTypeVariantSKU)))

	assert.Equal(t, 3, p.Count(SemanticTypeProductID))
	assert.Equal(t, 1, p.Count(SemanticTypeVariantSKU))
	assert.Equal(t, 0, p.Count(SemanticTypeOrderID))
	assert.ElementsMatch(t,
		[]SemanticType{SemanticTypeProductID, SemanticTypeVariantSKU},
		p.Types())
}

func TestPoolCapacityRollsOldest(t *testing.T) {
	p := newTestPool(t, Config{MaxPerType: 4})

	for i := range 10 {
		require.NoError(t, p.Add(NewParameterValue(i, SemanticTypeProductID)))
	}
	assert.Equal(t, 4, p.Count(SemanticTypeProductID))

	// Only the four newest identifiers remain drawable.
	for range 40 {
		got, err := p.GetRandom(SemanticTypeProductID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.GreaterOrEqual(t, got.Value.(int), 6)
	}
}

func TestPoolExpiredFallOutOnDraw(t *testing.T) {
	p := newTestPool(t, Config{})

	pv := NewParameterValue("stale", SemanticTypeProductID)
	pv.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, p.Add(pv))

	got, err := p.GetRandom(SemanticTypeProductID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, p.Count(SemanticTypeProductID))
}

func TestPoolSweepDropsExpired(t *testing.T) {
	p := newTestPool(t, Config{})

	now := time.Now()
	for i := range 4 {
		pv := NewParameterValue(fmt.Sprintf("stale%d", i), SemanticTypeProductID)
		pv.ExpiresAt = now.Add(-time.Second)
		require.NoError(t, p.Add(pv))
	}
	require.NoError(t, p.Add(NewParameterValue("#1001", SemanticTypeOrderNumber)))

	assert.Equal(t, 4, p.sweep(now))
	assert.Equal(t, 0, p.Count(SemanticTypeProductID))
	assert.ElementsMatch(t, []SemanticType{SemanticTypeOrderNumber}, p.Types())
}

func TestPoolClose(t *testing.T) {
	p := New(Config{SweepInterval: time.Millisecond})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "closing twice is fine")

	assert.ErrorIs(t, p.Add(NewParameterValue("v", SemanticTypeProductID)), ErrClosed)
	_, err := p.GetRandom(SemanticTypeProductID)
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, p.Remove(&ParameterValue{SemanticType: SemanticTypeProductID}))
}

func TestPoolConcurrentUse(t *testing.T) {
	p := newTestPool(t, Config{MaxPerType: 64, Shards: 4})

	types := []SemanticType{SemanticTypeProductID, SemanticTypeVariantSKU, SemanticTypeOrderID}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				st := types[(w+i)%len(types)]
				if err := p.Add(NewParameterValue(i, st)); err != nil {
					errs <- err
					return
				}
				pv, err := p.GetRandom(st)
				if err != nil {
					errs <- err
					return
				}
				if pv != nil && i%7 == 0 {
					p.Remove(pv)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, st := range types {
		assert.Positive(t, p.Count(st))
	}
}

func TestPowerOfTwo(t *testing.T) {
	for in, want := range map[int]int{-1: 1, 0: 1, 1: 1, 2: 2, 3: 4, 16: 16, 17: 32} {
		assert.Equal(t, want, powerOfTwo(in), "powerOfTwo(%d)", in)
	}
}

func BenchmarkPoolAdd(b *testing.B) {
	p := New(Config{MaxPerType: 10000})
	defer p.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			p.Add(NewParameterValue(i, SemanticTypeProductID))
			i++
		}
	})
}

func BenchmarkPoolAddDraw(b *testing.B) {
	p := New(Config{MaxPerType: 10000})
	defer p.Close()
	for i := range 1000 {
		p.Add(NewParameterValue(i, SemanticTypeVariantSKU))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%4 == 0 {
				p.Add(NewParameterValue(i, SemanticTypeVariantSKU))
			} else {
				p.GetRandom(SemanticTypeVariantSKU)
			}
			i++
		}
	})
}
