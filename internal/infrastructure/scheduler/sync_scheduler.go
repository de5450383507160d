package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// FlowRunner
// ---------------------------------------------------------------------------

// FlowRunner executes one full run of a synchronization flow. The
// application services satisfy it directly.
type FlowRunner interface {
	Run(ctx context.Context) (*integration.SyncResult, error)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds configuration for the sync scheduler
type Config struct {
	// ProductsInterval is the period between product import runs
	ProductsInterval time.Duration
	// InventoryInterval is the period between inventory reconciliation runs
	InventoryInterval time.Duration
	// OrdersInterval is the period between order reconciliation runs
	OrdersInterval time.Duration
	// RunTimeout is the maximum wall time for a single flow run
	RunTimeout time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		ProductsInterval:  time.Hour,
		InventoryInterval: 15 * time.Minute,
		OrdersInterval:    5 * time.Minute,
		RunTimeout:        15 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ProductsInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.InventoryInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.OrdersInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.RunTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// interval returns the configured period for a flow
func (c *Config) interval(flow integration.Flow) time.Duration {
	switch flow {
	case integration.FlowProducts:
		return c.ProductsInterval
	case integration.FlowInventory:
		return c.InventoryInterval
	case integration.FlowOrders:
		return c.OrdersInterval
	default:
		return 0
	}
}

// ---------------------------------------------------------------------------
// Run records
// ---------------------------------------------------------------------------

// RunTrigger identifies what started a flow run
type RunTrigger string

const (
	RunTriggerSchedule RunTrigger = "SCHEDULE"
	RunTriggerManual   RunTrigger = "MANUAL"
)

// RunRecord captures one completed flow run
type RunRecord struct {
	Flow      integration.Flow
	Trigger   RunTrigger
	Result    *integration.SyncResult // nil when the run failed before producing a result
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// Succeeded returns true when the run finished without a flow-level error
func (r *RunRecord) Succeeded() bool {
	return r.Error == "" && r.Result != nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler runs each registered flow on its own interval. Every flow
// is guarded by a single-flight lock so one run never overlaps the next;
// manual triggers share the same guard.
type SyncScheduler struct {
	config  Config
	runners map[integration.Flow]FlowRunner
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	inFlightMu sync.Mutex
	inFlight   map[integration.Flow]bool

	// Run history for the status endpoint (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*RunRecord
	maxHistory int
}

// NewSyncScheduler creates a scheduler for the given flow runners
func NewSyncScheduler(config Config, runners map[integration.Flow]FlowRunner, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	registered := make(map[integration.Flow]FlowRunner, len(runners))
	for flow, runner := range runners {
		registered[flow] = runner
	}

	return &SyncScheduler{
		config:     config,
		runners:    registered,
		logger:     logger,
		inFlight:   make(map[integration.Flow]bool),
		history:    make([]*RunRecord, 0, 50),
		maxHistory: 50,
	}, nil
}

// Start launches one run loop per registered flow. Each loop fires
// immediately, so a restart catches up without waiting a full interval.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, flow := range integration.AllFlows() {
		if _, ok := s.runners[flow]; !ok {
			continue
		}
		s.wg.Add(1)
		go s.runLoop(ctx, flow, s.config.interval(flow))
	}

	s.logger.Info("Sync scheduler started",
		zap.Duration("products_interval", s.config.ProductsInterval),
		zap.Duration("inventory_interval", s.config.InventoryInterval),
		zap.Duration("orders_interval", s.config.OrdersInterval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight runs
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the periodic loops are active
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow executes a flow immediately, bypassing the schedule. It works
// whether or not the periodic loops are started, so manual triggers stay
// available when scheduling is disabled.
func (s *SyncScheduler) RunNow(ctx context.Context, flow integration.Flow) (*RunRecord, error) {
	return s.execute(ctx, flow, RunTriggerManual)
}

// runLoop runs one flow on its interval
func (s *SyncScheduler) runLoop(ctx context.Context, flow integration.Flow, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	s.runScheduled(ctx, flow)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sync run loop stopping", zap.String("flow", flow.String()))
			return
		case <-ticker.C:
			s.runScheduled(ctx, flow)
		}
	}
}

// runScheduled executes one scheduled run. Run failures are recorded in
// history and logged by execute; the next tick retries naturally.
func (s *SyncScheduler) runScheduled(ctx context.Context, flow integration.Flow) {
	_, err := s.execute(ctx, flow, RunTriggerSchedule)
	if errors.Is(err, ErrFlowAlreadyRunning) {
		s.logger.Warn("Skipping scheduled run, previous run still in progress",
			zap.String("flow", flow.String()),
		)
	}
}

// execute performs one guarded flow run
func (s *SyncScheduler) execute(ctx context.Context, flow integration.Flow, trigger RunTrigger) (*RunRecord, error) {
	runner, ok := s.runners[flow]
	if !ok {
		return nil, ErrUnknownFlow
	}

	if !s.tryAcquire(flow) {
		return nil, ErrFlowAlreadyRunning
	}
	defer s.release(flow)

	s.logger.Info("Sync flow run starting",
		zap.String("flow", flow.String()),
		zap.String("trigger", string(trigger)),
	)

	record := &RunRecord{
		Flow:      flow,
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	runCtx, span := telemetry.StartServiceSpan(runCtx, flow.String(), "run",
		telemetry.WithAttribute(telemetry.SpanAttrFlow, flow.String()),
		telemetry.WithAttribute("trigger", string(trigger)),
	)
	defer span.End()

	result, err := runner.Run(runCtx)
	record.Result = result
	record.EndedAt = time.Now().UTC()

	if err != nil {
		record.Error = err.Error()
		s.addToHistory(record)
		telemetry.RecordError(span, err)
		s.logger.Error("Sync flow run failed",
			zap.String("flow", flow.String()),
			zap.String("trigger", string(trigger)),
			zap.Error(err),
		)
		return record, err
	}

	s.addToHistory(record)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSyncRunID, result.RunID,
		"status", string(result.Status),
		"total", result.TotalCount,
		"failed", result.FailedCount,
	)
	s.logger.Info("Sync flow run completed",
		zap.String("flow", flow.String()),
		zap.String("trigger", string(trigger)),
		zap.String("status", string(result.Status)),
		zap.Int("total", result.TotalCount),
		zap.Int("created", result.CreatedCount),
		zap.Int("updated", result.UpdatedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
	)

	return record, nil
}

// tryAcquire takes the single-flight lock for a flow
func (s *SyncScheduler) tryAcquire(flow integration.Flow) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if s.inFlight[flow] {
		return false
	}
	s.inFlight[flow] = true
	return true
}

// release frees the single-flight lock for a flow
func (s *SyncScheduler) release(flow integration.Flow) {
	s.inFlightMu.Lock()
	delete(s.inFlight, flow)
	s.inFlightMu.Unlock()
}

// isInFlight reports whether a run for the flow is in progress
func (s *SyncScheduler) isInFlight(flow integration.Flow) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return s.inFlight[flow]
}

// addToHistory adds a completed run to history
func (s *SyncScheduler) addToHistory(record *RunRecord) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	// Add to front
	s.history = append([]*RunRecord{record}, s.history...)

	// Trim if over limit
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// History returns the most recent run records, newest first
func (s *SyncScheduler) History(limit int) []*RunRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*RunRecord, limit)
	copy(result, s.history[:limit])
	return result
}

// LastRun returns the most recent run record for a flow, or nil
func (s *SyncScheduler) LastRun(flow integration.Flow) *RunRecord {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	for _, record := range s.history {
		if record.Flow == flow {
			return record
		}
	}
	return nil
}

// Stats returns scheduler statistics for the status endpoint
func (s *SyncScheduler) Stats() map[string]interface{} {
	stats := make(map[string]interface{})
	stats["is_running"] = s.IsRunning()
	stats["run_timeout"] = s.config.RunTimeout.String()

	flows := make(map[string]interface{})
	for _, flow := range integration.AllFlows() {
		if _, ok := s.runners[flow]; !ok {
			continue
		}
		entry := map[string]interface{}{
			"interval":  s.config.interval(flow).String(),
			"in_flight": s.isInFlight(flow),
		}
		if last := s.LastRun(flow); last != nil {
			entry["last_trigger"] = string(last.Trigger)
			entry["last_started_at"] = last.StartedAt.Format(time.RFC3339)
			if last.Error != "" {
				entry["last_error"] = last.Error
			}
			if last.Result != nil {
				entry["last_status"] = string(last.Result.Status)
			}
		}
		flows[flow.String()] = entry
	}
	stats["flows"] = flows

	return stats
}
