package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 10
	Rate float64

	// Burst is the bucket size.
	// Default: 20
	Burst int

	// MaxWait lets Execute wait up to this long for a token. Zero rejects
	// immediately.
	MaxWait time.Duration
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 10
	}
	if c.Burst <= 0 {
		c.Burst = 20
	}
}

// RateLimiter is a single token bucket shared by all callers.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config.applyDefaults()
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow reports whether a call may proceed now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Execute runs op if a token is available, waiting up to MaxWait.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := take(ctx, rl.limiter, rl.config.MaxWait); err != nil {
		return err
	}
	return op(ctx)
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

func take(ctx context.Context, l *rate.Limiter, maxWait time.Duration) error {
	if l.Allow() {
		return nil
	}
	if maxWait <= 0 {
		return ErrRateLimitExceeded
	}

	waitCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()
	if err := l.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimitExceeded
	}
	return nil
}

// KeyedRateLimiterConfig configures per-key token buckets.
type KeyedRateLimiterConfig struct {
	RateLimiterConfig

	// IdleTTL drops a key's bucket after it has been unused this long.
	// Default: 10 minutes
	IdleTTL time.Duration

	// Now overrides time.Now.
	Now func() time.Time
}

// KeyedRateLimiter keeps one token bucket per key, typically a client
// address or login identifier. Idle buckets are dropped lazily.
type KeyedRateLimiter struct {
	config KeyedRateLimiterConfig

	mu        sync.Mutex
	buckets   map[string]*keyedBucket
	lastSweep time.Time
}

type keyedBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedRateLimiter creates a per-key rate limiter.
func NewKeyedRateLimiter(config KeyedRateLimiterConfig) *KeyedRateLimiter {
	// Apply defaults
	config.applyDefaults()
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &KeyedRateLimiter{
		config:    config,
		buckets:   make(map[string]*keyedBucket),
		lastSweep: config.Now(),
	}
}

// Allow reports whether key may make a call now.
func (k *KeyedRateLimiter) Allow(key string) bool {
	return k.bucket(key).Allow()
}

// Execute runs op if key has a token, waiting up to MaxWait.
func (k *KeyedRateLimiter) Execute(ctx context.Context, key string, op func(context.Context) error) error {
	if err := take(ctx, k.bucket(key), k.config.MaxWait); err != nil {
		return err
	}
	return op(ctx)
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// Limit returns the configured burst, for rate-limit response headers.
func (k *KeyedRateLimiter) Limit() int {
	return k.config.Burst
}

// Remaining returns the whole tokens left in key's bucket.
func (k *KeyedRateLimiter) Remaining(key string) int {
	n := int(k.bucket(key).Tokens())
	if n < 0 {
		return 0
	}
	return n
}

// RetryAfter returns how long a rejected caller should wait for one token.
func (k *KeyedRateLimiter) RetryAfter() time.Duration {
	if k.config.Rate <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / k.config.Rate)
}

func (k *KeyedRateLimiter) bucket(key string) *rate.Limiter {
	now := k.config.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	if now.Sub(k.lastSweep) >= k.config.IdleTTL {
		for name, b := range k.buckets {
			if now.Sub(b.lastSeen) >= k.config.IdleTTL {
				delete(k.buckets, name)
			}
		}
		k.lastSweep = now
	}

	b, ok := k.buckets[key]
	if !ok {
		b = &keyedBucket{limiter: rate.NewLimiter(rate.Limit(k.config.Rate), k.config.Burst)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}
