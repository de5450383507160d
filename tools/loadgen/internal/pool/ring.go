package pool

import (
	"math/rand/v2"
	"time"
)

// ring is the fixed-capacity store behind one semantic type. Retired and
// expired identifiers leave nil holes; add fills holes first and, once every
// slot is live, overwrites at the insertion cursor, which under steady
// traffic is the oldest entry.
//
// Not safe for concurrent use. The owning shard serializes access.
type ring struct {
	slots []*ParameterValue
	next  int // insertion cursor
	live  int
}

func newRing(capacity int) *ring {
	return &ring{slots: make([]*ParameterValue, capacity)}
}

// add stores v, reporting whether a live entry was dropped to make room.
func (r *ring) add(v *ParameterValue) bool {
	if r.live == len(r.slots) {
		r.slots[r.next] = v
		r.next = (r.next + 1) % len(r.slots)
		return true
	}
	for i := range r.slots {
		idx := (r.next + i) % len(r.slots)
		if r.slots[idx] == nil {
			r.slots[idx] = v
			r.next = (idx + 1) % len(r.slots)
			r.live++
			return false
		}
	}
	return false // unreachable while live < len(slots)
}

// random returns a live entry, or nil when none is left. Expired entries
// found along the way are dropped, so a ring with only stale identifiers
// drains itself on draw.
func (r *ring) random(now time.Time) *ParameterValue {
	if r.live == 0 {
		return nil
	}
	start := rand.IntN(len(r.slots))
	for i := range r.slots {
		idx := (start + i) % len(r.slots)
		pv := r.slots[idx]
		if pv == nil {
			continue
		}
		if pv.expiredAt(now) {
			r.slots[idx] = nil
			r.live--
			continue
		}
		return pv
	}
	return nil
}

// remove drops the given entry, matching by identity. Reports whether it
// was present.
func (r *ring) remove(v *ParameterValue) bool {
	for i, pv := range r.slots {
		if pv == v {
			r.slots[i] = nil
			r.live--
			return true
		}
	}
	return false
}

// removeExpired drops every entry past its expiry, returning how many went.
func (r *ring) removeExpired(now time.Time) int {
	removed := 0
	for i, pv := range r.slots {
		if pv != nil && pv.expiredAt(now) {
			r.slots[i] = nil
			r.live--
			removed++
		}
	}
	return removed
}

func (r *ring) count() int { return r.live }
