package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/integration"
)

// Monitor fans the engine's observability calls out to the process logger
// and the metrics pipeline. Services receive it by reference at
// construction, so tests can substitute their own.
type Monitor struct {
	logger  *zap.Logger
	metrics *SyncMetrics
}

// NewMonitor creates a Monitor. A nil metrics registry is allowed, log
// output still works and metric emissions are dropped.
func NewMonitor(logger *zap.Logger, metrics *SyncMetrics) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		logger:  logger,
		metrics: metrics,
	}
}

// Info logs an informational message.
func (m *Monitor) Info(msg string, fields ...zap.Field) {
	m.logger.Info(msg, fields...)
}

// Warn logs a warning message.
func (m *Monitor) Warn(msg string, fields ...zap.Field) {
	m.logger.Warn(msg, fields...)
}

// Error logs an error message.
func (m *Monitor) Error(msg string, fields ...zap.Field) {
	m.logger.Error(msg, fields...)
}

// Metric forwards a metric emission to the sync metrics registry.
func (m *Monitor) Metric(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
	if m.metrics == nil {
		return
	}
	m.metrics.Record(ctx, name, value, attrs...)
}

// Ensure Monitor implements the integration.Monitor interface
var _ integration.Monitor = (*Monitor)(nil)
