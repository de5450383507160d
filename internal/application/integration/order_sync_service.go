package integration

import (
	"context"
	"errors"
	"time"

	"github.com/channelsync/backend/internal/domain/integration"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// defaultLookback re-covers the window before the stored cursor so
	// deliveries racing a previous run are not missed.
	defaultLookback = 15 * time.Minute
	// defaultInitialLookback bounds the first run, when no cursor exists yet.
	defaultInitialLookback = 24 * time.Hour
)

// ---------------------------------------------------------------------------
// OrderSyncService
// ---------------------------------------------------------------------------

// OrderSyncService reconciles storefront orders into the target platform,
// both as a cursor-driven bulk pass and per order for webhook events.
type OrderSyncService struct {
	source          integration.SourcePlatform
	target          integration.TargetPlatform
	state           integration.StateStore
	monitor         integration.Monitor
	retry           integration.RetryPolicy
	pageSize        int
	lookback        time.Duration
	initialLookback time.Duration
}

// NewOrderSyncService creates a new OrderSyncService
func NewOrderSyncService(
	source integration.SourcePlatform,
	target integration.TargetPlatform,
	state integration.StateStore,
	monitor integration.Monitor,
	retry integration.RetryPolicy,
	pageSize int,
	lookback time.Duration,
	initialLookback time.Duration,
) *OrderSyncService {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if lookback <= 0 {
		lookback = defaultLookback
	}
	if initialLookback <= 0 {
		initialLookback = defaultInitialLookback
	}
	return &OrderSyncService{
		source:          source,
		target:          target,
		state:           state,
		monitor:         monitor,
		retry:           retry,
		pageSize:        pageSize,
		lookback:        lookback,
		initialLookback: initialLookback,
	}
}

// Run lists storefront orders created since the stored cursor (minus the
// lookback buffer) and reconciles each one. The cursor only advances when the
// listing completed, so an aborted run re-reads its window next time.
func (s *OrderSyncService) Run(ctx context.Context) (*integration.SyncResult, error) {
	result := integration.NewSyncResult(integration.FlowOrders)
	startedAt := result.StartedAt

	since, err := s.windowStart(ctx, startedAt)
	if err != nil {
		s.monitor.Error("order sync aborted: cursor unreadable",
			zap.String("sync_run_id", result.RunID),
			zap.Error(err),
		)
		result.Finalize()
		return result, err
	}

	s.monitor.Info("order sync started",
		zap.String("sync_run_id", result.RunID),
		zap.Time("since", since),
	)

	cursor := ""
	for {
		page, err := integration.Retry(ctx, s.retry, s.monitor, "listOrders",
			func(ctx context.Context) (integration.OrderPage, error) {
				return s.source.ListOrders(ctx, since, cursor, s.pageSize)
			})
		if err != nil {
			s.monitor.Error("order sync aborted: source page unreadable",
				zap.String("operation", "listOrders"),
				zap.String("sync_run_id", result.RunID),
				zap.String("cursor", cursor),
				zap.Error(err),
			)
			s.finish(ctx, result)
			return result, err
		}

		for _, order := range page.Orders {
			action, err := s.ReconcileOne(ctx, order)
			if err != nil {
				result.RecordFailure(order.ExternalID, err)
				s.monitor.Error("order sync item failed",
					zap.String("action", action.String()),
					zap.String("external_id", order.ExternalID),
					zap.String("sync_run_id", result.RunID),
					zap.Error(err),
				)
				s.itemMetric(ctx, OutcomeFailed)
				continue
			}
			s.recordAction(ctx, result, action)
		}

		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}

	if err := s.state.SetLastSyncTime(ctx, integration.FlowOrders, startedAt); err != nil {
		// The run itself succeeded; a stale cursor only widens the next
		// window.
		s.monitor.Warn("order sync cursor not advanced",
			zap.String("sync_run_id", result.RunID),
			zap.Error(err),
		)
	}

	s.finish(ctx, result)
	return result, nil
}

// ReconcileOne applies the find-then-decide pattern for a single order:
// absent on the target → create; present with a stale status → update;
// already current → skip without touching the wire. Immediate re-invocation
// with an unchanged order therefore performs no second write.
func (s *OrderSyncService) ReconcileOne(ctx context.Context, order integration.Order) (integration.OrderAction, error) {
	nextStatus := integration.MapOrderStatus(order.FinancialStatus)

	existing, err := s.target.OrderByExternalID(ctx, order.ExternalID)
	if err != nil && !errors.Is(err, integration.ErrOrderNotFound) {
		return integration.OrderActionSkip, err
	}

	action := integration.DecideOrderAction(existing, nextStatus)
	switch action {
	case integration.OrderActionCreate:
		draft := integration.BuildOrderDraft(order)
		_, err := integration.Retry(ctx, s.retry, s.monitor, "orderCreate",
			func(ctx context.Context) (*integration.TargetOrder, error) {
				return s.target.CreateOrder(ctx, draft)
			})
		if err != nil {
			return action, err
		}

	case integration.OrderActionUpdate:
		draft := integration.BuildOrderDraft(order)
		err := integration.RetryNoResult(ctx, s.retry, s.monitor, "orderUpdate",
			func(ctx context.Context) error {
				return s.target.UpdateOrder(ctx, existing.ID, draft)
			})
		if err != nil {
			return action, err
		}

	case integration.OrderActionSkip:
		// Target already current.
	}
	return action, nil
}

// windowStart derives the listing filter from the stored cursor.
func (s *OrderSyncService) windowStart(ctx context.Context, now time.Time) (time.Time, error) {
	last, err := s.state.LastSyncTime(ctx, integration.FlowOrders)
	if err != nil {
		return time.Time{}, err
	}
	if last == nil {
		return now.Add(-s.initialLookback), nil
	}
	return last.Add(-s.lookback), nil
}

func (s *OrderSyncService) recordAction(ctx context.Context, result *integration.SyncResult, action integration.OrderAction) {
	outcome := OutcomeSkipped
	switch action {
	case integration.OrderActionCreate:
		result.RecordCreated()
		outcome = OutcomeCreated
	case integration.OrderActionUpdate:
		result.RecordUpdated()
		outcome = OutcomeUpdated
	default:
		result.RecordSkipped()
	}
	s.itemMetric(ctx, outcome)
}

func (s *OrderSyncService) itemMetric(ctx context.Context, outcome string) {
	s.monitor.Metric(ctx, integration.MetricSyncItems, 1,
		attribute.String("flow", integration.FlowOrders.String()),
		attribute.String("outcome", outcome),
	)
}

func (s *OrderSyncService) finish(ctx context.Context, result *integration.SyncResult) {
	result.Finalize()
	s.monitor.Info("order sync finished",
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
		attribute.String("flow", integration.FlowOrders.String()),
		attribute.String("status", result.Status.String()),
	)
	s.monitor.Metric(ctx, integration.MetricSyncDurationMS, result.Duration().Milliseconds(),
		attribute.String("flow", integration.FlowOrders.String()),
	)
}
