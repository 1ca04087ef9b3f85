package auth

import (
	"context"
	"errors"
	"testing"
)

func activeSession(id string) *Session {
	return &Session{Account: &Account{ID: id, Active: true}}
}

func TestRun_Empty(t *testing.T) {
	result, err := Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Passed) != 0 || len(result.Values) != 0 {
		t.Errorf("Run() = %+v, want empty result", result)
	}
}

func TestRun_FailFast(t *testing.T) {
	called := false
	checks := []Check{
		AccountActive(),
		DenyAll("deny"),
		Gate("marker", func(context.Context, *Session) error {
			called = true
			return nil
		}),
	}

	result, err := Run(context.Background(), activeSession("alice"), checks...)
	if result != nil {
		t.Errorf("Run() result = %+v, want nil on denial", result)
	}
	var de *DenialError
	if !errors.As(err, &de) {
		t.Fatalf("Run() error = %v, want *DenialError", err)
	}
	if de.Check != "deny" {
		t.Errorf("Check = %q, want deny", de.Check)
	}
	if called {
		t.Error("check after a denial was evaluated")
	}
	if !errors.Is(err, ErrForbidden) {
		t.Error("denial should match ErrForbidden")
	}
}

func TestRun_Order(t *testing.T) {
	var order []string
	mark := func(name string) Check {
		return Gate(name, func(context.Context, *Session) error {
			order = append(order, name)
			return nil
		})
	}

	result, err := Run(context.Background(), nil, mark("a"), mark("b"), mark("c"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] || result.Passed[i] != want[i] {
			t.Fatalf("order = %v, passed = %v, want %v", order, result.Passed, want)
		}
	}
}

func TestRun_SuppliedValues(t *testing.T) {
	ctx := WithHeaders(context.Background(), map[string][]string{
		"X-Token": {"fake-super-secret-token"},
		"X-Key":   {"fake-super-secret-key"},
	})

	result, err := Run(ctx, nil,
		RequireHeader("X-Token", "fake-super-secret-token"),
		RequireHeader("X-Key", "fake-super-secret-key"),
	)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if v, ok := result.Value("header:X-Key"); !ok || v != "fake-super-secret-key" {
		t.Errorf("Value(header:X-Key) = (%v, %v)", v, ok)
	}
	if _, ok := result.Value("missing"); ok {
		t.Error("Value(missing) should not be found")
	}
}

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
		outcome Outcome
		check   string
	}{
		{name: "active", session: activeSession("alice"), outcome: OutcomeOK},
		{name: "disabled", session: &Session{Account: &Account{ID: "alice"}}, outcome: OutcomeInactive, check: CheckAccountActive},
		{name: "no session", session: nil, outcome: OutcomeUnauthenticated, check: CheckAccountActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.session, AccountActive())
			if got := Classify(err); got != tt.outcome {
				t.Errorf("Classify() = %v, want %v", got, tt.outcome)
			}
			var de *DenialError
			if tt.check != "" && (!errors.As(err, &de) || de.Check != tt.check) {
				t.Errorf("Run() error = %v, want denial by %s", err, tt.check)
			}
		})
	}
}

func TestRun_NilFunc(t *testing.T) {
	_, err := Run(context.Background(), nil, Check{Name: "broken"})
	var de *DenialError
	if !errors.As(err, &de) || de.Check != "broken" {
		t.Errorf("Run() error = %v, want denial by broken", err)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, nil, Authenticated())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_NestedDenialKeepsCheck(t *testing.T) {
	inner := Gate("outer", func(context.Context, *Session) error {
		return &DenialError{Check: "inner", Reason: "nested"}
	})
	_, err := Run(context.Background(), nil, inner)
	var de *DenialError
	if !errors.As(err, &de) || de.Check != "inner" {
		t.Errorf("Run() error = %v, want denial by inner", err)
	}
}

func TestDenialMessageIsGeneric(t *testing.T) {
	_, err := Run(context.Background(), activeSession("alice"), HasAttribute("tier", "gold"))
	if PublicMessage(err) != MessageForbidden {
		t.Errorf("PublicMessage() = %q, want %q", PublicMessage(err), MessageForbidden)
	}
	if FailureReason(err) != "denied:has_attribute:tier" {
		t.Errorf("FailureReason() = %q", FailureReason(err))
	}
}
