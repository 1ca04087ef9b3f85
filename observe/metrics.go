package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records stage outcomes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordStage records one stage execution. reason is empty on success.
	RecordStage(ctx context.Context, meta StageMeta, duration time.Duration, reason string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	failureCount metric.Int64Counter
	durationHist metric.Float64Histogram
}

// Metric instrument names.
const (
	MetricStageTotal    = "auth.stage.total"
	MetricStageFailures = "auth.stage.failures"
	MetricStageDuration = "auth.stage.duration_ms"
)

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		MetricStageTotal,
		metric.WithDescription("Total number of authentication stage executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	failureCount, err := meter.Int64Counter(
		MetricStageFailures,
		metric.WithDescription("Authentication stage failures by reason"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricStageDuration,
		metric.WithDescription("Authentication stage duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		failureCount: failureCount,
		durationHist: durationHist,
	}, nil
}

// RecordStage records metrics for a stage execution.
func (m *metricsImpl) RecordStage(ctx context.Context, meta StageMeta, duration time.Duration, reason string) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.totalCount.Add(ctx, 1, opt)

	if reason != "" {
		attrs := append(meta.attributes(), attribute.String("auth.reason", reason))
		m.failureCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordStage(context.Context, StageMeta, time.Duration, string) {}
