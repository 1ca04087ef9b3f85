package auth

import (
	"context"
	"time"

	"github.com/jonwraymond/tokenauth/observe"
	"github.com/jonwraymond/tokenauth/resilience"
)

// Stage names reported to observe.Middleware.
const (
	StageAuthenticate = "authenticate"
	StageIssue        = "issue"
	StageResolve      = "resolve"
	StageAuthorize    = "authorize"
)

// options holds settings shared by Authenticator and SessionResolver.
type options struct {
	middleware  *observe.Middleware
	bulkhead    *resilience.Bulkhead
	revocations RevocationList
	now         func() time.Time
}

// Option configures an Authenticator or SessionResolver.
type Option func(*options)

// WithMiddleware instruments the component's stage with mw. Failures are
// labelled with FailureReason.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) {
		if mw != nil {
			mw = mw.WithReasonFunc(FailureReason)
		}
		o.middleware = mw
	}
}

// WithHashBulkhead caps concurrent password verifications. When the
// bulkhead rejects a call the Authenticator returns an internal error
// rather than a credential failure.
func WithHashBulkhead(b *resilience.Bulkhead) Option {
	return func(o *options) {
		o.bulkhead = b
	}
}

// WithRevocationList makes the SessionResolver reject revoked token IDs.
func WithRevocationList(r RevocationList) Option {
	return func(o *options) {
		o.revocations = r
	}
}

// WithClock overrides time.Now for components that read the clock: the
// MemoryRevocationList expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// runStage executes fn, wrapped by mw when one is configured.
func runStage[T any](ctx context.Context, mw *observe.Middleware, meta observe.StageMeta, fn func(context.Context) (T, error)) (T, error) {
	if mw == nil {
		return fn(ctx)
	}
	out, err := mw.Wrap(func(ctx context.Context, _ observe.StageMeta, _ any) (any, error) {
		return fn(ctx)
	})(ctx, meta, nil)
	v, _ := out.(T)
	return v, err
}
