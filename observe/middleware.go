package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature of an instrumented stage.
type ExecuteFunc func(ctx context.Context, stage StageMeta, input any) (any, error)

// ReasonFunc maps a stage error to a low-cardinality failure reason.
type ReasonFunc func(err error) string

// DefaultReason labels every failure "error".
func DefaultReason(err error) string {
	if err == nil {
		return ""
	}
	return "error"
}

// Middleware wraps stages with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Redaction: only the failure reason is recorded, never err.Error(),
//     since auth errors may name the failing credential check.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
	reason  ReasonFunc
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		reason:  DefaultReason,
	}
}

// WithReasonFunc returns a copy of the middleware using fn to label failures.
func (m *Middleware) WithReasonFunc(fn ReasonFunc) *Middleware {
	if fn == nil {
		fn = DefaultReason
	}
	c := *m
	c.reason = fn
	return &c
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, stage StageMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, stage)

		start := time.Now()
		result, err := fn(ctx, stage, input)
		duration := time.Since(start)

		reason := ""
		if err != nil {
			reason = m.reason(err)
		}

		m.tracer.EndSpan(span, reason, err)
		m.metrics.RecordStage(ctx, stage, duration, reason)

		stageLogger := m.logger.WithStage(stage)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
		}

		if err != nil {
			fields = append(fields, Field{Key: "reason", Value: reason})
			stageLogger.Warn(ctx, "stage failed", fields...)
		} else {
			stageLogger.Debug(ctx, "stage completed", fields...)
		}

		return result, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(newNoopTracer(), &noopMetrics{}, &noopLogger{})
}
