package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// StageMeta describes one instrumented authentication stage.
type StageMeta struct {
	Name      string // Stage name, e.g. "authenticate", "resolve" (required)
	Operation string // Protected operation the stage serves (optional)
	Component string // Component emitting the stage, defaults to "auth"
}

func (m StageMeta) component() string {
	if m.Component != "" {
		return m.Component
	}
	return "auth"
}

// Validate reports whether the metadata is usable.
func (m StageMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingStageName
	}
	return nil
}

// SpanName returns the deterministic span name for this stage.
// Format: <component>.<name>
func (m StageMeta) SpanName() string {
	return m.component() + "." + m.Name
}

// StageID returns the fully qualified stage identifier.
// Format: <component>.<name> or <component>.<name>:<operation>
func (m StageMeta) StageID() string {
	if m.Operation != "" {
		return m.SpanName() + ":" + m.Operation
	}
	return m.SpanName()
}

func (m StageMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("auth.stage", m.Name),
		attribute.String("auth.component", m.component()),
	}
	if m.Operation != "" {
		attrs = append(attrs, attribute.String("auth.operation", m.Operation))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with stage-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context carrying the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a stage.
	StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the failure reason if any.
	EndSpan(span trace.Span, reason string, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with stage metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("auth.failed", false))

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span. The error text is never attached because it may
// describe which credential check failed; only the reason is recorded.
func (t *tracerImpl) EndSpan(span trace.Span, reason string, err error) {
	if err != nil {
		span.SetStatus(codes.Error, reason)
		span.SetAttributes(
			attribute.Bool("auth.failed", true),
			attribute.String("auth.reason", reason),
		)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta StageMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ string, _ error) {
	span.End()
}
