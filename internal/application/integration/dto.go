package integration

import (
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Sync run DTOs
// ---------------------------------------------------------------------------

// SyncFailureResponse represents one failed item in API responses
type SyncFailureResponse struct {
	ItemID       string `json:"item_id"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// SyncResultResponse represents a flow run's outcome in API responses
type SyncResultResponse struct {
	RunID        string                `json:"run_id"`
	Flow         string                `json:"flow"`
	Status       string                `json:"status"`
	TotalCount   int                   `json:"total_count"`
	CreatedCount int                   `json:"created_count"`
	UpdatedCount int                   `json:"updated_count"`
	SkippedCount int                   `json:"skipped_count"`
	FailedCount  int                   `json:"failed_count"`
	FailedItems  []SyncFailureResponse `json:"failed_items,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	CompletedAt  time.Time             `json:"completed_at"`
	DurationMS   int64                 `json:"duration_ms"`
}

// ToSyncResultResponse converts a domain result into its API shape
func ToSyncResultResponse(r *integration.SyncResult) SyncResultResponse {
	resp := SyncResultResponse{
		RunID:        r.RunID,
		Flow:         r.Flow.String(),
		Status:       r.Status.String(),
		TotalCount:   r.TotalCount,
		CreatedCount: r.CreatedCount,
		UpdatedCount: r.UpdatedCount,
		SkippedCount: r.SkippedCount,
		FailedCount:  r.FailedCount,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		DurationMS:   r.Duration().Milliseconds(),
	}
	for _, f := range r.FailedItems {
		resp.FailedItems = append(resp.FailedItems, SyncFailureResponse{
			ItemID:       f.ItemID,
			ErrorCode:    f.ErrorCode,
			ErrorMessage: f.ErrorMessage,
		})
	}
	return resp
}
