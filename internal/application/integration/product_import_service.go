package integration

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/integration"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// defaultPageSize bounds one listing request when the caller leaves the page
// size unset.
const defaultPageSize = 50

// Item outcomes reported in logs, metrics and webhook results.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeDeleted = "deleted"
	OutcomeFailed  = "failed"
)

// ---------------------------------------------------------------------------
// ProductImportService
// ---------------------------------------------------------------------------

// ProductImportService drives the product flows: the bulk catalog import and
// the single-product upsert/delete used by webhook events.
type ProductImportService struct {
	source   integration.SourcePlatform
	target   integration.TargetPlatform
	mappings integration.MappingSource
	monitor  integration.Monitor
	retry    integration.RetryPolicy
	pageSize int
}

// NewProductImportService creates a new ProductImportService
func NewProductImportService(
	source integration.SourcePlatform,
	target integration.TargetPlatform,
	mappings integration.MappingSource,
	monitor integration.Monitor,
	retry integration.RetryPolicy,
	pageSize int,
) *ProductImportService {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &ProductImportService{
		source:   source,
		target:   target,
		mappings: mappings,
		monitor:  monitor,
		retry:    retry,
		pageSize: pageSize,
	}
}

// Run imports the full source catalog into the target. Item failures are
// counted and the pass continues; a flow-level failure (unusable mapping
// table, unreadable page) finalizes the partial result and returns it
// alongside the error.
func (s *ProductImportService) Run(ctx context.Context) (*integration.SyncResult, error) {
	result := integration.NewSyncResult(integration.FlowProducts)
	s.monitor.Info("product import started",
		zap.String("sync_run_id", result.RunID),
	)

	mappings, err := s.mappings.Load(ctx)
	if err != nil {
		s.monitor.Error("product import aborted: mapping table unusable",
			zap.String("sync_run_id", result.RunID),
			zap.Error(err),
		)
		result.Finalize()
		return result, err
	}

	cursor := ""
	for {
		page, err := integration.Retry(ctx, s.retry, s.monitor, "listProducts",
			func(ctx context.Context) (integration.ProductPage, error) {
				return s.source.ListProducts(ctx, cursor, s.pageSize)
			})
		if err != nil {
			s.monitor.Error("product import aborted: source page unreadable",
				zap.String("operation", "listProducts"),
				zap.String("sync_run_id", result.RunID),
				zap.String("cursor", cursor),
				zap.Error(err),
			)
			s.finish(ctx, result)
			return result, err
		}

		for _, product := range page.Products {
			action, err := s.upsert(ctx, product, mappings)
			if err != nil {
				s.recordItemFailure(ctx, result, product.ExternalID, action, err)
				continue
			}
			s.recordItemSuccess(ctx, result, action)
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}

	s.finish(ctx, result)
	return result, nil
}

// SyncOne upserts a single product, as delivered by a webhook event. The
// mapping table is loaded fresh per event.
func (s *ProductImportService) SyncOne(ctx context.Context, product integration.Product) (string, error) {
	mappings, err := s.mappings.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.upsert(ctx, product, mappings)
}

// DeleteOne removes the target product matching the source id. A missing
// product is a success: there is nothing left to delete. The returned bool
// reports whether a delete was actually issued.
func (s *ProductImportService) DeleteOne(ctx context.Context, externalID string) (bool, error) {
	existing, err := s.target.ProductByExternalID(ctx, externalID)
	if errors.Is(err, integration.ErrProductNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = integration.RetryNoResult(ctx, s.retry, s.monitor, "productDelete",
		func(ctx context.Context) error {
			return s.target.DeleteProduct(ctx, existing.ID)
		})
	if err != nil {
		return false, err
	}
	return true, nil
}

// upsert maps the product and applies the find-then-create-or-update pattern
// that keeps redeliveries and concurrent bulk passes idempotent. The
// existence check goes out bare; only the write is retried.
func (s *ProductImportService) upsert(ctx context.Context, product integration.Product, mappings []integration.AttributeMapping) (string, error) {
	draft := integration.MapProduct(product, mappings)

	existing, err := s.target.ProductByExternalID(ctx, product.ExternalID)
	switch {
	case err == nil:
		_, err = integration.Retry(ctx, s.retry, s.monitor, "productUpdate",
			func(ctx context.Context) (*integration.TargetProduct, error) {
				return s.target.UpdateProduct(ctx, existing.ID, draft)
			})
		if err != nil {
			return OutcomeUpdated, err
		}
		return OutcomeUpdated, nil

	case errors.Is(err, integration.ErrProductNotFound):
		_, err = integration.Retry(ctx, s.retry, s.monitor, "productCreate",
			func(ctx context.Context) (*integration.TargetProduct, error) {
				return s.target.CreateProduct(ctx, draft)
			})
		if err != nil {
			return OutcomeCreated, err
		}
		return OutcomeCreated, nil

	default:
		return OutcomeFailed, err
	}
}

func (s *ProductImportService) recordItemSuccess(ctx context.Context, result *integration.SyncResult, action string) {
	switch action {
	case OutcomeCreated:
		result.RecordCreated()
	case OutcomeUpdated:
		result.RecordUpdated()
	default:
		result.RecordSkipped()
	}
	s.monitor.Metric(ctx, integration.MetricSyncItems, 1,
		attribute.String("flow", integration.FlowProducts.String()),
		attribute.String("outcome", action),
	)
}

func (s *ProductImportService) recordItemFailure(ctx context.Context, result *integration.SyncResult, externalID, operation string, err error) {
	result.RecordFailure(externalID, err)
	s.monitor.Error("product import item failed",
		zap.String("operation", operation),
		zap.String("external_id", externalID),
		zap.String("sync_run_id", result.RunID),
		zap.Error(err),
	)
	s.monitor.Metric(ctx, integration.MetricSyncItems, 1,
		attribute.String("flow", integration.FlowProducts.String()),
		attribute.String("outcome", OutcomeFailed),
	)
}

func (s *ProductImportService) finish(ctx context.Context, result *integration.SyncResult) {
	result.Finalize()
	s.monitor.Info("product import finished",
		zap.String("sync_run_id", result.RunID),
		zap.String("status", result.Status.String()),
		zap.Int("total", result.TotalCount),
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
		zap.Duration("duration", result.Duration()),
	)
	s.monitor.Metric(ctx, integration.MetricSyncRuns, 1,
		attribute.String("flow", integration.FlowProducts.String()),
		attribute.String("status", result.Status.String()),
	)
	s.monitor.Metric(ctx, integration.MetricSyncDurationMS, result.Duration().Milliseconds(),
		attribute.String("flow", integration.FlowProducts.String()),
	)
}
