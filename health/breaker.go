package health

import (
	"context"

	"github.com/jonwraymond/tokenauth/resilience"
)

// BreakerChecker maps a circuit breaker's state to a health status: closed
// is healthy, half-open is degraded and open is unhealthy.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for cb.
func NewBreakerChecker(name string, cb *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: cb}
}

// Name returns the checker name.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check reads the breaker state.
func (c *BreakerChecker) Check(_ context.Context) Result {
	m := c.breaker.Metrics()
	details := map[string]any{
		"state":    m.State.String(),
		"failures": m.Failures,
		"rejected": m.Rejected,
	}

	switch m.State {
	case resilience.StateOpen:
		return Unhealthy("circuit open", m.LastError).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit probing").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

// Ensure BreakerChecker implements Checker
var _ Checker = (*BreakerChecker)(nil)
