package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/cache"
	"github.com/jonwraymond/tokenauth/directory"
	"github.com/jonwraymond/tokenauth/observe"
	"github.com/jonwraymond/tokenauth/secret"
)

// EnvPrefix prefixes every variable Load reads.
const EnvPrefix = "TOKENAUTH_"

// Variable names, without EnvPrefix.
const (
	EnvSigningKey       = "SIGNING_KEY"
	EnvTokenTTLMinutes  = "TOKEN_TTL_MINUTES"
	EnvHashCost         = "HASH_COST"
	EnvClockSkewSeconds = "CLOCK_SKEW_SECONDS"
	EnvIssuer           = "ISSUER"
	EnvDBDriver         = "DB_DRIVER"
	EnvDBDSN            = "DB_DSN"
	EnvCacheTTLSeconds  = "DIRECTORY_CACHE_TTL_SECONDS"
	EnvLookupTimeoutMS  = "LOOKUP_TIMEOUT_MS"
	EnvHTTPAddr         = "HTTP_ADDR"
	EnvTokenRatePerMin  = "TOKEN_RATE_PER_MINUTE"
	EnvLogLevel         = "LOG_LEVEL"
	EnvMetricsExporter  = "METRICS_EXPORTER"
	EnvTracingExporter  = "TRACING_EXPORTER"
	EnvTracingSamplePct = "TRACING_SAMPLE_PCT"
)

// Defaults applied by Load.
const (
	DefaultTokenTTL       = auth.DefaultTokenTTL
	DefaultHashCost       = auth.DefaultHashCost
	DefaultDBDriver       = directory.DriverSQLite
	DefaultSQLiteDSN      = "tokenauth.db"
	DefaultLookupTimeout  = 2 * time.Second
	DefaultHTTPAddr       = ":8080"
	DefaultTokenRate      = 30
	DefaultLogLevel       = "info"
	DefaultExporter       = "none"
	DefaultTracingSamples = 1.0
)

var (
	// ErrMissingSigningKey is returned when SIGNING_KEY is unset or empty.
	ErrMissingSigningKey = errors.New("config: signing key is required")

	// ErrInvalidValue is returned when a variable cannot be parsed or is out
	// of range.
	ErrInvalidValue = errors.New("config: invalid value")
)

// Config is the process configuration for a tokenauth host.
type Config struct {
	// SigningKey is the resolved HMAC key. It never appears in String output.
	SigningKey []byte

	TokenTTL  time.Duration
	ClockSkew time.Duration
	Issuer    string
	HashCost  int

	DBDriver string
	DBDSN    string

	// DirectoryCacheTTL enables the account cache when positive.
	DirectoryCacheTTL time.Duration

	// LookupTimeout bounds each directory lookup attempt.
	LookupTimeout time.Duration

	HTTPAddr string

	// TokenRatePerMinute limits token requests per client. Zero disables it.
	TokenRatePerMinute int

	LogLevel         string
	MetricsExporter  string
	TracingExporter  string
	TracingSamplePct float64
}

type loadOptions struct {
	envFile  string
	lookup   func(string) (string, bool)
	resolver *secret.Resolver
}

// Option configures Load.
type Option func(*loadOptions)

// WithEnvFile reads variables from a dotenv file. Values already present in
// the environment win. A missing file is not an error.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithLookup replaces os.LookupEnv.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(o *loadOptions) {
		o.lookup = fn
	}
}

// WithResolver resolves secretref: values with r instead of a resolver
// built from secret.NewRegistry.
func WithResolver(r *secret.Resolver) Option {
	return func(o *loadOptions) {
		o.resolver = r
	}
}

// Load reads configuration from the environment, applies defaults,
// resolves the signing key and validates the result.
func Load(ctx context.Context, opts ...Option) (*Config, error) {
	o := loadOptions{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}

	lookup := o.lookup
	if o.envFile != "" {
		fileVars, err := godotenv.Read(o.envFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", o.envFile, err)
		default:
			lookup = overlay(o.lookup, fileVars)
		}
	}

	if o.resolver == nil {
		r, err := secret.NewRegistry().Resolver(true)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		o.resolver = r
	}

	env := reader{lookup: lookup}
	cfg := &Config{
		TokenTTL:           env.minutes(EnvTokenTTLMinutes, DefaultTokenTTL),
		ClockSkew:          env.seconds(EnvClockSkewSeconds, 0),
		Issuer:             env.str(EnvIssuer, ""),
		HashCost:           env.integer(EnvHashCost, DefaultHashCost),
		DBDriver:           env.str(EnvDBDriver, DefaultDBDriver),
		DBDSN:              env.str(EnvDBDSN, ""),
		DirectoryCacheTTL:  env.seconds(EnvCacheTTLSeconds, 0),
		LookupTimeout:      env.millis(EnvLookupTimeoutMS, DefaultLookupTimeout),
		HTTPAddr:           env.str(EnvHTTPAddr, DefaultHTTPAddr),
		TokenRatePerMinute: env.integer(EnvTokenRatePerMin, DefaultTokenRate),
		LogLevel:           strings.ToLower(env.str(EnvLogLevel, DefaultLogLevel)),
		MetricsExporter:    strings.ToLower(env.str(EnvMetricsExporter, DefaultExporter)),
		TracingExporter:    strings.ToLower(env.str(EnvTracingExporter, DefaultExporter)),
		TracingSamplePct:   env.float(EnvTracingSamplePct, DefaultTracingSamples),
	}
	if err := env.err(); err != nil {
		return nil, err
	}

	// Apply defaults
	if cfg.DBDSN == "" && cfg.DBDriver == directory.DriverSQLite {
		cfg.DBDSN = DefaultSQLiteDSN
	}

	raw := env.str(EnvSigningKey, "")
	if raw == "" {
		return nil, ErrMissingSigningKey
	}
	key, err := o.resolver.ResolveValue(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s%s: %w", EnvPrefix, EnvSigningKey, err)
	}
	cfg.SigningKey = []byte(key)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if len(c.SigningKey) == 0 {
		return ErrMissingSigningKey
	}
	if len(c.SigningKey) < auth.MinSigningKeyBytes {
		return fmt.Errorf("%w: %s%s must be at least %d bytes", ErrInvalidValue, EnvPrefix, EnvSigningKey, auth.MinSigningKeyBytes)
	}
	if c.TokenTTL <= 0 {
		return invalid(EnvTokenTTLMinutes, "must be positive")
	}
	if c.ClockSkew < 0 {
		return invalid(EnvClockSkewSeconds, "must not be negative")
	}
	if c.HashCost < bcrypt.MinCost || c.HashCost > bcrypt.MaxCost {
		return invalid(EnvHashCost, fmt.Sprintf("must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	switch c.DBDriver {
	case directory.DriverSQLite, directory.DriverPostgres:
	default:
		return invalid(EnvDBDriver, fmt.Sprintf("unsupported driver %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		return invalid(EnvDBDSN, "is required for "+c.DBDriver)
	}
	if c.DirectoryCacheTTL < 0 {
		return invalid(EnvCacheTTLSeconds, "must not be negative")
	}
	if c.LookupTimeout <= 0 {
		return invalid(EnvLookupTimeoutMS, "must be positive")
	}
	if c.TokenRatePerMinute < 0 {
		return invalid(EnvTokenRatePerMin, "must not be negative")
	}

	obs := c.Observe("tokenauth", "")
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}

// TokenConfig returns the codec settings.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		SigningKey: c.SigningKey,
		TTL:        c.TokenTTL,
		ClockSkew:  c.ClockSkew,
		Issuer:     c.Issuer,
	}
}

// CachePolicy returns the directory cache policy. A zero TTL disables
// caching.
func (c *Config) CachePolicy() cache.Policy {
	if c.DirectoryCacheTTL <= 0 {
		return cache.NoCachePolicy()
	}
	p := cache.DefaultPolicy()
	p.DefaultTTL = c.DirectoryCacheTTL
	if p.MaxTTL < p.DefaultTTL {
		p.MaxTTL = p.DefaultTTL
	}
	return p
}

// Observe returns the telemetry configuration. An exporter of "none"
// disables that signal.
func (c *Config) Observe(serviceName, version string) observe.Config {
	return observe.Config{
		ServiceName: serviceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.TracingExporter != "" && c.TracingExporter != "none",
			Exporter:  c.TracingExporter,
			SamplePct: c.TracingSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.MetricsExporter != "" && c.MetricsExporter != "none",
			Exporter: c.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.LogLevel,
		},
	}
}

// String describes the configuration with the signing key redacted.
func (c *Config) String() string {
	return fmt.Sprintf("driver=%s addr=%s ttl=%s cost=%d cache_ttl=%s lookup_timeout=%s metrics=%s tracing=%s signing_key=[REDACTED]",
		c.DBDriver, c.HTTPAddr, c.TokenTTL, c.HashCost, c.DirectoryCacheTTL, c.LookupTimeout, c.MetricsExporter, c.TracingExporter)
}

func invalid(name, reason string) error {
	return fmt.Errorf("%w: %s%s %s", ErrInvalidValue, EnvPrefix, name, reason)
}

func overlay(base func(string) (string, bool), file map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := base(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}
}

// reader parses prefixed variables and keeps the first parse error.
type reader struct {
	lookup func(string) (string, bool)
	first  error
}

func (r *reader) str(name, def string) string {
	v, ok := r.lookup(EnvPrefix + name)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func (r *reader) integer(name string, def int) int {
	v := r.str(name, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v)
		return def
	}
	return n
}

func (r *reader) float(name string, def float64) float64 {
	v := r.str(name, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(name, v)
		return def
	}
	return f
}

func (r *reader) duration(name string, unit, def time.Duration) time.Duration {
	v := r.str(name, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(name, v)
		return def
	}
	return time.Duration(n) * unit
}

func (r *reader) minutes(name string, def time.Duration) time.Duration {
	return r.duration(name, time.Minute, def)
}

func (r *reader) seconds(name string, def time.Duration) time.Duration {
	return r.duration(name, time.Second, def)
}

func (r *reader) millis(name string, def time.Duration) time.Duration {
	return r.duration(name, time.Millisecond, def)
}

func (r *reader) fail(name, value string) {
	if r.first == nil {
		r.first = fmt.Errorf("%w: %s%s=%q", ErrInvalidValue, EnvPrefix, name, value)
	}
}

func (r *reader) err() error {
	return r.first
}
