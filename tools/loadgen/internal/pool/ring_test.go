package pool

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ringValue(id string) *ParameterValue {
	return NewParameterValue(id, SemanticTypeProductID)
}

func ringValues(r *ring) []any {
	var out []any
	for _, pv := range r.slots {
		if pv != nil {
			out = append(out, pv.Value)
		}
	}
	return out
}

func TestRingOverwritesOldestWhenFull(t *testing.T) {
	r := newRing(3)
	for _, id := range []string{"a", "b", "c"} {
		assert.False(t, r.add(ringValue(id)))
	}
	require.Equal(t, 3, r.count())

	dropped := r.add(ringValue("d"))
	assert.True(t, dropped, "a full ring drops an entry to make room")
	assert.Equal(t, 3, r.count())
	assert.ElementsMatch(t, []any{"b", "c", "d"}, ringValues(r))
}

func TestRingReusesFreedSlots(t *testing.T) {
	r := newRing(3)
	b := ringValue("b")
	r.add(ringValue("a"))
	r.add(b)
	r.add(ringValue("c"))

	require.True(t, r.remove(b))
	require.Equal(t, 2, r.count())

	dropped := r.add(ringValue("d"))
	assert.False(t, dropped, "a freed slot is filled before anything is dropped")
	assert.ElementsMatch(t, []any{"a", "c", "d"}, ringValues(r))
}

func TestRingRemoveMatchesByIdentity(t *testing.T) {
	r := newRing(4)
	first := ringValue("same")
	second := ringValue("same")
	r.add(first)
	r.add(second)

	require.True(t, r.remove(first))
	assert.False(t, r.remove(first), "an entry leaves the ring once")
	assert.Equal(t, 1, r.count())

	got := r.random(time.Now())
	assert.Same(t, second, got)
}

func TestRingRandomDrainsExpired(t *testing.T) {
	r := newRing(4)
	assert.Nil(t, r.random(time.Now()))

	stale := ringValue("stale")
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	r.add(stale)

	assert.Nil(t, r.random(time.Now()))
	assert.Equal(t, 0, r.count(), "expired entries are dropped on draw")
}

func TestRingRandomSkipsExpiredEntries(t *testing.T) {
	r := newRing(8)
	stale := ringValue("stale")
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	r.add(stale)
	fresh := ringValue("fresh")
	r.add(fresh)

	for range 20 {
		got := r.random(time.Now())
		require.NotNil(t, got)
		assert.Same(t, fresh, got)
	}
}

func TestRingRemoveExpired(t *testing.T) {
	r := newRing(8)
	now := time.Now()
	for i := range 5 {
		pv := ringValue(fmt.Sprintf("v%d", i))
		if i%2 == 0 {
			pv.ExpiresAt = now.Add(-time.Second)
		}
		r.add(pv)
	}

	assert.Equal(t, 3, r.removeExpired(now))
	assert.Equal(t, 2, r.count())
	assert.Equal(t, 0, r.removeExpired(now))
}
