// Package resilience guards the calls an authentication service makes to its
// dependencies: account lookups, password hashing and login attempts.
//
// # Patterns
//
//   - CircuitBreaker stops calling an account store that keeps failing and
//     probes it again after a cool-down.
//   - Retry re-runs transient store failures with capped backoff.
//   - Bulkhead caps how many expensive operations (password hashing) run at
//     once.
//   - RateLimiter and KeyedRateLimiter throttle callers with token buckets,
//     globally or per client key.
//
// Errors marked with Permanent are answers, not outages: they are never
// retried and never count against a circuit breaker. An account store
// returns "not found" this way.
//
// # Usage
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//
//	acct, err := resilience.Do(ctx, exec, func(ctx context.Context) (*auth.Account, error) {
//	    return store.Lookup(ctx, id)
//	})
package resilience
