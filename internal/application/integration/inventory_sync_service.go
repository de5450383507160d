package integration

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/integration"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// InventorySyncService
// ---------------------------------------------------------------------------

// InventorySyncService reconciles per-SKU stock quantities between the two
// platforms: the bulk pass compares the full pictures, the single-SKU path
// serves inventory webhook events.
type InventorySyncService struct {
	source   integration.SourcePlatform
	target   integration.TargetPlatform
	monitor  integration.Monitor
	retry    integration.RetryPolicy
	pageSize int
}

// NewInventorySyncService creates a new InventorySyncService
func NewInventorySyncService(
	source integration.SourcePlatform,
	target integration.TargetPlatform,
	monitor integration.Monitor,
	retry integration.RetryPolicy,
	pageSize int,
) *InventorySyncService {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &InventorySyncService{
		source:   source,
		target:   target,
		monitor:  monitor,
		retry:    retry,
		pageSize: pageSize,
	}
}

// Run fetches both platforms' inventory, computes the needed corrections and
// applies them one SKU at a time. A failed write never blocks the remaining
// SKUs.
func (s *InventorySyncService) Run(ctx context.Context) (*integration.SyncResult, error) {
	result := integration.NewSyncResult(integration.FlowInventory)
	s.monitor.Info("inventory sync started",
		zap.String("sync_run_id", result.RunID),
	)

	sourceItems, err := s.collect(ctx, "listSourceInventory", s.source.ListInventory)
	if err != nil {
		s.monitor.Error("inventory sync aborted: source inventory unreadable",
			zap.String("operation", "listSourceInventory"),
			zap.String("sync_run_id", result.RunID),
			zap.Error(err),
		)
		s.finish(ctx, result)
		return result, err
	}

	targetItems, err := s.collect(ctx, "listTargetInventory", s.target.ListInventory)
	if err != nil {
		s.monitor.Error("inventory sync aborted: target inventory unreadable",
			zap.String("operation", "listTargetInventory"),
			zap.String("sync_run_id", result.RunID),
			zap.Error(err),
		)
		s.finish(ctx, result)
		return result, err
	}

	updates := integration.ComputeInventoryUpdates(sourceItems, targetItems)

	// SKUs matched on both sides but already in agreement count as skipped.
	for i := matchedSKUs(sourceItems, targetItems) - len(updates); i > 0; i-- {
		result.RecordSkipped()
	}

	for _, update := range updates {
		err := integration.RetryNoResult(ctx, s.retry, s.monitor, "variantQuantityUpdate",
			func(ctx context.Context) error {
				return s.target.UpdateVariantQuantity(ctx, update.TargetVariantID, update.ResolvedQuantity)
			})
		if err != nil {
			result.RecordFailure(update.SKU, err)
			s.monitor.Error("inventory update failed",
				zap.String("operation", "variantQuantityUpdate"),
				zap.String("sku", update.SKU),
				zap.String("sync_run_id", result.RunID),
				zap.Error(err),
			)
			s.itemMetric(ctx, OutcomeFailed)
			continue
		}
		result.RecordUpdated()
		s.monitor.Info("inventory quantity corrected",
			zap.String("sku", update.SKU),
			zap.Int("source_quantity", update.SourceQuantity),
			zap.Int("target_quantity", update.TargetQuantity),
			zap.Int("resolved_quantity", update.ResolvedQuantity),
		)
		s.itemMetric(ctx, OutcomeUpdated)
	}

	s.finish(ctx, result)
	return result, nil
}

// SyncSKU reconciles a single SKU from a webhook-delivered stock picture. A
// SKU the target does not carry is skipped, mirroring the bulk pass's
// one-sided rule. The returned outcome is updated or skipped.
func (s *InventorySyncService) SyncSKU(ctx context.Context, sku string, levels []integration.InventoryLevel) (string, error) {
	variant, err := s.target.VariantBySKU(ctx, sku)
	if errors.Is(err, integration.ErrVariantNotFound) {
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeFailed, err
	}

	item := integration.InventoryItem{SKU: sku, Levels: levels}
	sourceQty := item.TotalAvailable()
	resolved := sourceQty
	if variant.Quantity < resolved {
		resolved = variant.Quantity
	}
	if variant.Quantity == resolved {
		return OutcomeSkipped, nil
	}

	err = integration.RetryNoResult(ctx, s.retry, s.monitor, "variantQuantityUpdate",
		func(ctx context.Context) error {
			return s.target.UpdateVariantQuantity(ctx, variant.ID, resolved)
		})
	if err != nil {
		return OutcomeFailed, err
	}
	return OutcomeUpdated, nil
}

// collect drains a paginated inventory listing, retrying each page fetch.
func (s *InventorySyncService) collect(
	ctx context.Context,
	operation string,
	list func(context.Context, string, int) (integration.InventoryPage, error),
) ([]integration.InventoryItem, error) {
	var items []integration.InventoryItem
	cursor := ""
	for {
		page, err := integration.Retry(ctx, s.retry, s.monitor, operation,
			func(ctx context.Context) (integration.InventoryPage, error) {
				return list(ctx, cursor, s.pageSize)
			})
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if !page.HasNextPage {
			return items, nil
		}
		cursor = page.EndCursor
	}
}

func (s *InventorySyncService) itemMetric(ctx context.Context, outcome string) {
	s.monitor.Metric(ctx, integration.MetricSyncItems, 1,
		attribute.String("flow", integration.FlowInventory.String()),
		attribute.String("outcome", outcome),
	)
}

func (s *InventorySyncService) finish(ctx context.Context, result *integration.SyncResult) {
	result.Finalize()
	s.monitor.Info("inventory sync finished",
		zap.String("sync_run_id", result.RunID),
		zap.String("status", result.Status.String()),
		zap.Int("total", result.TotalCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
		zap.Duration("duration", result.Duration()),
	)
	s.monitor.Metric(ctx, integration.MetricSyncRuns, 1,
		attribute.String("flow", integration.FlowInventory.String()),
		attribute.String("status", result.Status.String()),
	)
	s.monitor.Metric(ctx, integration.MetricSyncDurationMS, result.Duration().Milliseconds(),
		attribute.String("flow", integration.FlowInventory.String()),
	)
}

// matchedSKUs counts distinct SKUs present on both sides.
func matchedSKUs(source, target []integration.InventoryItem) int {
	targetSKUs := make(map[string]struct{}, len(target))
	for _, item := range target {
		targetSKUs[item.SKU] = struct{}{}
	}
	seen := make(map[string]struct{}, len(source))
	count := 0
	for _, item := range source {
		if _, dup := seen[item.SKU]; dup {
			continue
		}
		seen[item.SKU] = struct{}{}
		if _, ok := targetSKUs[item.SKU]; ok {
			count++
		}
	}
	return count
}
