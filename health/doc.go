// Package health reports whether the pieces an authentication service
// depends on are usable: the account store, the signing key and any circuit
// breakers guarding them.
//
// A Checker reports a Result with a Status of Healthy, Degraded or
// Unhealthy. An Aggregator runs registered checkers concurrently under a
// shared deadline and folds their results into one overall status.
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewPingChecker("accounts", db))
//	agg.Register(health.NewBreakerChecker("accounts_breaker", breaker))
//
//	mux.Handle("GET /healthz", health.LivenessHandler())
//	mux.Handle("GET /readyz", health.ReadinessHandler(agg))
//	mux.Handle("GET /health", health.DetailedHandler(agg))
package health
