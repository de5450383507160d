package telemetry

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/integration"
)

// MetricLastSyncAge is the gauge fed by the periodic collector below.
const MetricLastSyncAge = "channelsync_last_sync_age_seconds"

// SyncMetrics turns the engine's metric emissions into OTEL instruments.
// Names ending in _total become counters, names ending in _milliseconds
// become duration histograms, anything else becomes a gauge. Instruments
// are created on first use and cached, so flows can emit new metric names
// without touching this package.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	mu         sync.Mutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	gauges     map[string]*Gauge

	lastSyncAge *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// SyncStateProvider reports when a flow last completed. The sync state
// stores satisfy it directly.
type SyncStateProvider interface {
	LastSyncTime(ctx context.Context, flow integration.Flow) (*time.Time, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// instrumentInfo carries the description and unit registered for known
// metric names. Unknown names still register, just without a description.
type instrumentInfo struct {
	description string
	unit        string
}

var syncInstruments = map[string]instrumentInfo{
	integration.MetricSyncItems:      {"Entities processed by sync flows", "{items}"},
	integration.MetricSyncRuns:       {"Sync flow runs completed", "{runs}"},
	integration.MetricSyncDurationMS: {"Wall time of a full sync flow run", "ms"},
	integration.MetricWebhookEvents:  {"Webhook events received and routed", "{events}"},
	integration.MetricRetryAttempts:  {"Failed platform calls that were retried", "{attempts}"},
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:      cfg.Meter,
		logger:     logger,
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		gauges:     make(map[string]*Gauge),
		stopChan:   make(chan struct{}),
	}

	var err error
	sm.lastSyncAge, err = NewFloatGauge(
		cfg.Meter,
		MetricLastSyncAge,
		"Seconds since a flow last completed successfully",
		"s",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// Record routes a metric emission to the instrument kind implied by its
// name suffix.
func (sm *SyncMetrics) Record(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	switch {
	case strings.HasSuffix(name, "_total"):
		if c := sm.counter(name); c != nil {
			c.Add(ctx, value, attrs...)
		}
	case strings.HasSuffix(name, "_milliseconds"):
		if h := sm.histogram(name); h != nil {
			h.Record(ctx, float64(value), attrs...)
		}
	default:
		if g := sm.gauge(name); g != nil {
			g.Record(ctx, value, attrs...)
		}
	}
}

func (sm *SyncMetrics) counter(name string) *Counter {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if c, ok := sm.counters[name]; ok {
		return c
	}

	info := syncInstruments[name]
	if info.unit == "" {
		info.unit = "1"
	}
	c, err := NewCounter(sm.meter, name, info.description, info.unit)
	if err != nil {
		sm.logger.Warn("Failed to create counter", zap.String("metric", name), zap.Error(err))
		return nil
	}
	sm.counters[name] = c
	return c
}

func (sm *SyncMetrics) histogram(name string) *Histogram {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if h, ok := sm.histograms[name]; ok {
		return h
	}

	info := syncInstruments[name]
	if info.unit == "" {
		info.unit = "ms"
	}
	h, err := NewHistogram(sm.meter, HistogramOpts{
		Name:        name,
		Description: info.description,
		Unit:        info.unit,
		Boundaries:  SyncDurationMSBuckets,
	})
	if err != nil {
		sm.logger.Warn("Failed to create histogram", zap.String("metric", name), zap.Error(err))
		return nil
	}
	sm.histograms[name] = h
	return h
}

func (sm *SyncMetrics) gauge(name string) *Gauge {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if g, ok := sm.gauges[name]; ok {
		return g
	}

	info := syncInstruments[name]
	if info.unit == "" {
		info.unit = "1"
	}
	g, err := NewGauge(sm.meter, name, info.description, info.unit)
	if err != nil {
		sm.logger.Warn("Failed to create gauge", zap.String("metric", name), zap.Error(err))
		return nil
	}
	sm.gauges[name] = g
	return g
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts the last-sync age collector. Every interval
// it asks the state provider when each flow last completed and records the
// age in seconds, labeled by flow. A flow that grows stale shows up as a
// climbing gauge even when nothing is erroring.
// This is non-blocking - use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, provider SyncStateProvider, flows []integration.Flow, interval time.Duration) {
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}

		go sm.runPeriodicCollection(ctx, provider, flows, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, provider SyncStateProvider, flows []integration.Flow, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	sm.collectLastSyncAges(ctx, provider, flows)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectLastSyncAges(ctx, provider, flows)
		}
	}
}

// collectLastSyncAges records the last-sync age gauge for each flow.
func (sm *SyncMetrics) collectLastSyncAges(ctx context.Context, provider SyncStateProvider, flows []integration.Flow) {
	if provider == nil {
		sm.logger.Debug("No state provider configured, skipping last-sync age collection")
		return
	}

	for _, flow := range flows {
		last, err := provider.LastSyncTime(ctx, flow)
		if err != nil {
			sm.logger.Warn("Failed to read last sync time",
				zap.String("flow", flow.String()),
				zap.Error(err),
			)
			continue
		}
		if last == nil {
			// Flow has never completed, nothing to report yet
			continue
		}
		sm.lastSyncAge.Record(ctx, time.Since(*last).Seconds(), AttrFlow.String(flow.String()))
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
