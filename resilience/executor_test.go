package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExecutor_Empty(t *testing.T) {
	e := NewExecutor()
	called := false
	err := e.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Execute() = %v (called=%v)", err, called)
	}
}

func TestExecutor_RetryInsideBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	_ = e.Execute(context.Background(), func(context.Context) error {
		attempts++
		return errStoreDown
	})

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if m := cb.Metrics(); m.Failures != 1 {
		t.Errorf("breaker failures = %d, want 1 per Execute", m.Failures)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	e := NewExecutor(WithTimeout(10 * time.Millisecond))

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != ErrTimeout {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestExecutor_TimeoutKeepsParentCancellation(t *testing.T) {
	e := NewExecutor(WithTimeout(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestExecutor_AllPatterns(t *testing.T) {
	e := NewExecutor(
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 10})),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 2})),
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{})),
		WithRetry(NewRetry(RetryConfig{InitialDelay: time.Millisecond})),
		WithTimeout(time.Second),
	)
	if err := e.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestDo(t *testing.T) {
	e := NewExecutor(WithRetry(NewRetry(RetryConfig{InitialDelay: time.Millisecond})))

	attempts := 0
	got, err := Do(context.Background(), e, func(context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errStoreDown
		}
		return "alice", nil
	})
	if err != nil || got != "alice" {
		t.Errorf("Do() = (%q, %v), want (alice, nil)", got, err)
	}
}

func TestDo_UnwrapsPermanent(t *testing.T) {
	notFound := errors.New("not found")
	e := NewExecutor(WithRetry(NewRetry(RetryConfig{InitialDelay: time.Millisecond})))

	attempts := 0
	got, err := Do(context.Background(), e, func(context.Context) (*int, error) {
		attempts++
		return nil, Permanent(notFound)
	})
	if err != notFound {
		t.Errorf("Do() error = %v, want the unmarked cause", err)
	}
	if got != nil || attempts != 1 {
		t.Errorf("Do() = %v after %d attempts", got, attempts)
	}
}

func TestDo_NilExecutor(t *testing.T) {
	got, err := Do(context.Background(), nil, func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("Do() = (%d, %v), want (7, nil)", got, err)
	}
}
