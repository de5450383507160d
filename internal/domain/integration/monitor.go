package integration

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Monitor
// ---------------------------------------------------------------------------

// Metric names emitted through the Monitor. The telemetry layer routes
// _total names to counters and _milliseconds names to histograms.
const (
	MetricSyncItems      = "channelsync_sync_items_total"
	MetricSyncRuns       = "channelsync_sync_runs_total"
	MetricSyncDurationMS = "channelsync_sync_duration_milliseconds"
	MetricWebhookEvents  = "channelsync_webhook_events_total"
	MetricRetryAttempts  = "channelsync_retry_attempts_total"
)

// Monitor is the observability collaborator handed to every engine component.
// Implementations fan out to the process logger and the metrics pipeline.
// Components receive their Monitor explicitly at construction; nothing in
// this module reaches for a package-level logger.
type Monitor interface {
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Metric(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue)
}

// NopMonitor discards everything. Useful as a test default.
type NopMonitor struct{}

// Info implements Monitor
func (NopMonitor) Info(string, ...zap.Field) {}

// Warn implements Monitor
func (NopMonitor) Warn(string, ...zap.Field) {}

// Error implements Monitor
func (NopMonitor) Error(string, ...zap.Field) {}

// Metric implements Monitor
func (NopMonitor) Metric(context.Context, string, int64, ...attribute.KeyValue) {}

var _ Monitor = (*NopMonitor)(nil)
