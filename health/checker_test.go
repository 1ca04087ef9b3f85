package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePinger struct {
	err error
}

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	boom := errors.New("boom")

	r := Unhealthy("down", boom).WithDuration(time.Second).WithDetails(map[string]any{"k": 1})
	if r.Status != StatusUnhealthy || r.Error != boom || r.Duration != time.Second || r.Details["k"] != 1 {
		t.Errorf("Unhealthy() = %+v", r)
	}
	if r.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if Healthy("ok").Status != StatusHealthy || Degraded("slow").Status != StatusDegraded {
		t.Error("Healthy/Degraded produced the wrong status")
	}
}

func TestPingChecker(t *testing.T) {
	ctx := context.Background()

	ok := NewPingChecker("accounts", fakePinger{})
	if ok.Name() != "accounts" {
		t.Errorf("Name() = %q, want accounts", ok.Name())
	}
	if r := ok.Check(ctx); r.Status != StatusHealthy {
		t.Errorf("Check() = %v, want healthy", r.Status)
	}

	refused := errors.New("connection refused")
	r := NewPingChecker("accounts", fakePinger{err: refused}).Check(ctx)
	if r.Status != StatusUnhealthy || r.Error != refused {
		t.Errorf("Check() = %+v, want unhealthy with %v", r, refused)
	}
}
