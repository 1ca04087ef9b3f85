package auth

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonwraymond/tokenauth/observe"
)

func newTestHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}

func newTestAccount(t *testing.T, h PasswordHasher, id, secret string, active bool) *Account {
	t.Helper()
	hash, err := h.Hash(secret)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	return &Account{ID: id, PasswordHash: hash, Active: active}
}

// stageRecord is one RecordStage call.
type stageRecord struct {
	meta   observe.StageMeta
	reason string
}

type recordingMetrics struct {
	mu      sync.Mutex
	records []stageRecord
}

func (m *recordingMetrics) RecordStage(_ context.Context, meta observe.StageMeta, _ time.Duration, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, stageRecord{meta: meta, reason: reason})
}

func (m *recordingMetrics) last(t *testing.T) stageRecord {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		t.Fatal("no stage recorded")
	}
	return m.records[len(m.records)-1]
}

type passthroughTracer struct{}

func (passthroughTracer) StartSpan(ctx context.Context, _ observe.StageMeta) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (passthroughTracer) EndSpan(trace.Span, string, error) {}

func newRecordingMiddleware() (*observe.Middleware, *recordingMetrics, *bytes.Buffer) {
	metrics := &recordingMetrics{}
	var logs bytes.Buffer
	mw := observe.NewMiddleware(passthroughTracer{}, metrics, observe.NewLoggerWithWriter("debug", &logs))
	return mw, metrics, &logs
}
