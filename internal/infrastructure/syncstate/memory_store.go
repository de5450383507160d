package syncstate

import (
	"context"
	"sync"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
)

// MemoryStore keeps per-flow sync cursors in process memory.
// This is suitable for single-instance deployments and testing. Cursors are
// lost on restart, which widens the next order listing back to the full
// history but is otherwise harmless: upserts are idempotent.
type MemoryStore struct {
	mu      sync.RWMutex
	cursors map[integration.Flow]time.Time
}

// NewMemoryStore creates a new in-memory sync state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cursors: make(map[integration.Flow]time.Time),
	}
}

// LastSyncTime returns the stored cursor for a flow, or nil if the flow has
// never completed.
func (s *MemoryStore) LastSyncTime(ctx context.Context, flow integration.Flow) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.cursors[flow]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// SetLastSyncTime advances the stored cursor for a flow
func (s *MemoryStore) SetLastSyncTime(ctx context.Context, flow integration.Flow, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[flow] = t.UTC()
	return nil
}

// Close releases resources. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	return nil
}

// Size returns the number of stored cursors (for testing/monitoring)
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cursors)
}

// Ensure MemoryStore implements StateStore
var _ integration.StateStore = (*MemoryStore)(nil)
