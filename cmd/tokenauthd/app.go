package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/cache"
	"github.com/jonwraymond/tokenauth/config"
	"github.com/jonwraymond/tokenauth/directory"
	"github.com/jonwraymond/tokenauth/health"
	"github.com/jonwraymond/tokenauth/observe"
	"github.com/jonwraymond/tokenauth/resilience"
)

// hashConcurrency caps simultaneous password verifications.
const hashConcurrency = 8

// app holds the wired components of a running daemon.
type app struct {
	cfg *config.Config

	db          *sql.DB
	store       *directory.SQLDirectory
	breaker     *resilience.CircuitBreaker
	codec       *auth.TokenCodec
	authn       *auth.Authenticator
	resolver    *auth.SessionResolver
	revocations *auth.MemoryRevocationList
	limiter     *resilience.KeyedRateLimiter
	health      *health.Aggregator

	obs     observe.Observer
	mw      *observe.Middleware
	logger  observe.Logger
	metrics http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	obsCfg := cfg.Observe(serviceName, version)
	obsCfg.Logging.Writer = logOut
	if obsCfg.Metrics.Exporter == "prometheus" {
		reg := prometheus.NewRegistry()
		obsCfg.Metrics.Registerer = reg
		a.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	if a.obs, err = observe.NewObserver(ctx, obsCfg); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if a.mw, err = observe.MiddlewareFromObserver(a.obs); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a.logger = a.obs.Logger()

	if a.db, err = directory.Open(ctx, cfg.DBDriver, cfg.DBDSN); err != nil {
		return nil, err
	}
	if err = directory.Migrate(ctx, a.db, cfg.DBDriver); err != nil {
		return nil, err
	}
	if a.store, err = directory.NewSQLDirectory(a.db, cfg.DBDriver); err != nil {
		return nil, err
	}

	a.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		OnStateChange: func(from, to resilience.State) {
			a.logger.Warn(context.Background(), "directory breaker state changed",
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})
	dir := a.accountDirectory()

	if a.codec, err = auth.NewTokenCodec(cfg.TokenConfig()); err != nil {
		return nil, err
	}
	a.revocations = auth.NewMemoryRevocationList()

	a.authn = auth.NewAuthenticator(dir, auth.NewBcryptHasher(cfg.HashCost),
		auth.WithMiddleware(a.mw),
		auth.WithHashBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: hashConcurrency})),
	)
	a.resolver = auth.NewSessionResolver(a.codec, dir,
		auth.WithMiddleware(a.mw),
		auth.WithRevocationList(a.revocations),
	)

	if cfg.TokenRatePerMinute > 0 {
		a.limiter = resilience.NewKeyedRateLimiter(resilience.KeyedRateLimiterConfig{
			RateLimiterConfig: resilience.RateLimiterConfig{
				Rate:  float64(cfg.TokenRatePerMinute) / 60,
				Burst: cfg.TokenRatePerMinute,
			},
		})
	}

	a.health = health.NewAggregator()
	a.health.Register(a.store.Checker())
	a.health.Register(auth.NewKeyChecker(a.codec))
	a.health.Register(health.NewBreakerChecker("directory_breaker", a.breaker))

	return a, nil
}

// accountDirectory layers the SQL store: an optional cache in front of a
// resilient lookup with per-attempt timeouts, retries and a breaker.
func (a *app) accountDirectory() auth.Directory {
	exec := resilience.NewExecutor(
		resilience.WithCircuitBreaker(a.breaker),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 2})),
		resilience.WithTimeout(a.cfg.LookupTimeout),
	)
	var dir auth.Directory = directory.NewResilient(a.store, exec)

	if policy := a.cfg.CachePolicy(); policy.ShouldCache() {
		dir = directory.NewCached(dir, cache.NewMemoryCache(policy), policy)
	}
	return dir
}

// Close releases the database and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.obs != nil {
		errs = append(errs, a.obs.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
