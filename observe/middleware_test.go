package observe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type testHarness struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	metrics, reader := newTestMetrics(t)
	logs := &bytes.Buffer{}

	return &testHarness{
		mw:     NewMiddleware(newTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", logs)),
		spans:  spans,
		reader: reader,
		logs:   logs,
	}
}

func TestMiddleware_SuccessPath(t *testing.T) {
	h := newHarness(t)

	wrapped := h.mw.Wrap(func(ctx context.Context, stage StageMeta, in any) (any, error) {
		return "session", nil
	})
	result, err := wrapped(context.Background(), StageMeta{Name: "resolve"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "session" {
		t.Errorf("result = %v, want session", result)
	}

	if spans := h.spans.Ended(); len(spans) != 1 || spans[0].Name() != "auth.resolve" {
		t.Errorf("unexpected spans: %v", spans)
	}
	if findMetric(collect(t, h.reader), MetricStageTotal) == nil {
		t.Error("total metric not recorded")
	}
	if !strings.Contains(h.logs.String(), "stage completed") {
		t.Errorf("expected completion log, got %s", h.logs.String())
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	h := newHarness(t)
	h.mw = h.mw.WithReasonFunc(func(err error) string { return "expired" })
	sentinel := errors.New("token expired at 12:00 for subject alice")

	wrapped := h.mw.Wrap(func(ctx context.Context, stage StageMeta, in any) (any, error) {
		return nil, sentinel
	})
	_, err := wrapped(context.Background(), StageMeta{Name: "resolve"}, nil)
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want sentinel unchanged", err)
	}

	failures := findMetric(collect(t, h.reader), MetricStageFailures)
	if failures == nil || sumByReason(t, failures)["expired"] != 1 {
		t.Error("failure not recorded under its reason")
	}
	if strings.Contains(h.logs.String(), "alice") {
		t.Errorf("error text leaked into logs: %s", h.logs.String())
	}
	if !strings.Contains(h.logs.String(), `"reason":"expired"`) {
		t.Errorf("reason missing from logs: %s", h.logs.String())
	}
}

func TestMiddleware_DefaultReason(t *testing.T) {
	if DefaultReason(nil) != "" || DefaultReason(errors.New("x")) != "error" {
		t.Error("DefaultReason() returned unexpected labels")
	}

	h := newHarness(t)
	derived := h.mw.WithReasonFunc(nil)
	_, _ = derived.Wrap(func(context.Context, StageMeta, any) (any, error) {
		return nil, errors.New("x")
	})(context.Background(), StageMeta{Name: "issue"}, nil)

	failures := findMetric(collect(t, h.reader), MetricStageFailures)
	if failures == nil || sumByReason(t, failures)["error"] != 1 {
		t.Error("nil ReasonFunc should fall back to DefaultReason")
	}
}

func TestMiddleware_PropagatesContext(t *testing.T) {
	h := newHarness(t)

	var inner trace.SpanContext
	wrapped := h.mw.Wrap(func(ctx context.Context, stage StageMeta, in any) (any, error) {
		inner = trace.SpanContextFromContext(ctx)
		return nil, nil
	})
	_, _ = wrapped(context.Background(), StageMeta{Name: "authorize"}, nil)

	if !inner.IsValid() {
		t.Fatal("wrapped function did not receive a span context")
	}
	if inner.SpanID() != h.spans.Ended()[0].SpanContext().SpanID() {
		t.Error("wrapped function ran outside the stage span")
	}
}

func TestMiddleware_PassesInput(t *testing.T) {
	mw := NopMiddleware()
	input := map[string]string{"id": "alice"}

	_, _ = mw.Wrap(func(_ context.Context, _ StageMeta, in any) (any, error) {
		got := in.(map[string]string)
		if got["id"] != "alice" {
			t.Errorf("input = %v", got)
		}
		return nil, nil
	})(context.Background(), StageMeta{Name: "authenticate"}, input)
}
