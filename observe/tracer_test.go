package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStageMeta_Names(t *testing.T) {
	tests := []struct {
		name     string
		meta     StageMeta
		wantSpan string
		wantID   string
	}{
		{"default component", StageMeta{Name: "resolve"}, "auth.resolve", "auth.resolve"},
		{"with operation", StageMeta{Name: "authorize", Operation: "admin.read"}, "auth.authorize", "auth.authorize:admin.read"},
		{"custom component", StageMeta{Name: "lookup", Component: "directory"}, "directory.lookup", "directory.lookup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.SpanName(); got != tt.wantSpan {
				t.Errorf("SpanName() = %q, want %q", got, tt.wantSpan)
			}
			if got := tt.meta.StageID(); got != tt.wantID {
				t.Errorf("StageID() = %q, want %q", got, tt.wantID)
			}
		})
	}
}

func TestStageMeta_Validate(t *testing.T) {
	if err := (StageMeta{}).Validate(); !errors.Is(err, ErrMissingStageName) {
		t.Errorf("Validate() error = %v, want ErrMissingStageName", err)
	}
	if err := (StageMeta{Name: "issue"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func newRecordingTracer() (Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return newTracer(tp.Tracer("test")), rec
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer_SpanAttributes(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), StageMeta{Name: "authorize", Operation: "items.update"})
	tracer.EndSpan(span, "", nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "auth.authorize" {
		t.Errorf("span name = %q", s.Name())
	}
	if v, ok := spanAttr(s.Attributes(), "auth.operation"); !ok || v.AsString() != "items.update" {
		t.Errorf("auth.operation = %v", v)
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_FailureRecordsReasonOnly(t *testing.T) {
	tracer, rec := newRecordingTracer()

	_, span := tracer.StartSpan(context.Background(), StageMeta{Name: "resolve"})
	tracer.EndSpan(span, "expired", errors.New("token is expired by 2s"))

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "expired" {
		t.Errorf("status = %+v, want Error/expired", s.Status())
	}
	if v, ok := spanAttr(s.Attributes(), "auth.failed"); !ok || !v.AsBool() {
		t.Error("auth.failed should be true")
	}
	if len(s.Events()) != 0 {
		t.Errorf("error text should not be recorded as an event, got %d events", len(s.Events()))
	}
}

func TestTracer_ContextPropagation(t *testing.T) {
	tracer, rec := newRecordingTracer()

	ctx, parent := tracer.StartSpan(context.Background(), StageMeta{Name: "authenticate"})
	_, child := tracer.StartSpan(ctx, StageMeta{Name: "lookup", Component: "directory"})
	tracer.EndSpan(child, "", nil)
	tracer.EndSpan(parent, "", nil)

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Error("child span is not parented to the stage span")
	}
}

func TestNoopTracer_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), StageMeta{Name: "noop"})
	tracer.EndSpan(span, "x", errors.New("x"))
}
