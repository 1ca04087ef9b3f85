package httpauth

import (
	"net"
	"net/http"

	"github.com/jonwraymond/tokenauth/observe"
	"github.com/jonwraymond/tokenauth/resilience"
)

// KeyFunc derives a rate-limit key from a request.
type KeyFunc func(r *http.Request) string

type options struct {
	logger   observe.Logger
	optional bool
	limiter  *resilience.KeyedRateLimiter
	keyFunc  KeyFunc
}

// Option configures Middleware and TokenHandler.
type Option func(*options)

// WithLogger logs failures with their internal reason. Clients never see
// the reason.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// OptionalToken lets requests without an Authorization header reach the
// operation's checks with a nil session. A header that is present but
// invalid is still rejected.
func OptionalToken() Option {
	return func(o *options) {
		o.optional = true
	}
}

// WithRateLimit rejects requests with 429 once key's bucket in l is empty.
// A nil key function keys by client address.
func WithRateLimit(l *resilience.KeyedRateLimiter, key KeyFunc) Option {
	return func(o *options) {
		o.limiter = l
		o.keyFunc = key
	}
}

func buildOptions(opts []Option) options {
	o := options{keyFunc: ClientAddr}
	for _, opt := range opts {
		opt(&o)
	}
	if o.keyFunc == nil {
		o.keyFunc = ClientAddr
	}
	return o
}

// ClientAddr returns the host part of r.RemoteAddr.
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
