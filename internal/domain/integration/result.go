package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Flow identifies one of the engine's synchronization flows
// ---------------------------------------------------------------------------

// Flow identifies one of the engine's synchronization flows
type Flow string

const (
	// FlowProducts is the bulk product import
	FlowProducts Flow = "products"
	// FlowInventory is the bulk inventory reconciliation
	FlowInventory Flow = "inventory"
	// FlowOrders is the bulk order reconciliation
	FlowOrders Flow = "orders"
)

// IsValid returns true if the flow name is known
func (f Flow) IsValid() bool {
	switch f {
	case FlowProducts, FlowInventory, FlowOrders:
		return true
	default:
		return false
	}
}

// String returns the string representation of Flow
func (f Flow) String() string {
	return string(f)
}

// AllFlows returns every flow in execution order. Products come first
// because inventory and orders reference products created by the import.
func AllFlows() []Flow {
	return []Flow{FlowProducts, FlowInventory, FlowOrders}
}

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus represents the overall outcome of one flow run
type SyncStatus string

const (
	// SyncStatusSuccess indicates every item succeeded
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates some items failed while others succeeded
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates nothing succeeded
	SyncStatusFailed SyncStatus = "FAILED"
)

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncResult
// ---------------------------------------------------------------------------

// SyncFailure records one item that could not be synchronized.
type SyncFailure struct {
	ItemID       string
	ErrorCode    string
	ErrorMessage string
}

// SyncResult accumulates the outcome of one bulk pass. Item failures are
// counted, not fatal; the run reports created/updated/skipped/failed counts
// instead of aborting on the first bad item.
type SyncResult struct {
	RunID        string
	Flow         Flow
	Status       SyncStatus
	TotalCount   int
	CreatedCount int
	UpdatedCount int
	SkippedCount int
	FailedCount  int
	FailedItems  []SyncFailure
	StartedAt    time.Time
	CompletedAt  time.Time
}

// NewSyncResult starts accumulating a run for the given flow.
func NewSyncResult(flow Flow) *SyncResult {
	return &SyncResult{
		RunID:     uuid.NewString(),
		Flow:      flow,
		StartedAt: time.Now().UTC(),
	}
}

// RecordCreated counts one created item.
func (r *SyncResult) RecordCreated() {
	r.TotalCount++
	r.CreatedCount++
}

// RecordUpdated counts one updated item.
func (r *SyncResult) RecordUpdated() {
	r.TotalCount++
	r.UpdatedCount++
}

// RecordSkipped counts one item that needed no write.
func (r *SyncResult) RecordSkipped() {
	r.TotalCount++
	r.SkippedCount++
}

// RecordFailure counts one failed item and keeps its error for the report.
func (r *SyncResult) RecordFailure(itemID string, err error) {
	r.TotalCount++
	r.FailedCount++
	r.FailedItems = append(r.FailedItems, SyncFailure{
		ItemID:       itemID,
		ErrorCode:    ErrorCode(err),
		ErrorMessage: err.Error(),
	})
}

// Finalize stamps the completion time and derives the overall status.
func (r *SyncResult) Finalize() {
	r.CompletedAt = time.Now().UTC()
	switch {
	case r.FailedCount == 0:
		r.Status = SyncStatusSuccess
	case r.FailedCount < r.TotalCount:
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusFailed
	}
}

// Duration returns the wall-clock span of the run.
func (r *SyncResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
