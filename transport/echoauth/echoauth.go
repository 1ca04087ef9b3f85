// Package echoauth adapts the auth package to labstack/echo.
//
// Its middleware follows the same status mapping as package httpauth.
package echoauth

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/observe"
	"github.com/jonwraymond/tokenauth/resilience"
	"github.com/jonwraymond/tokenauth/transport/httpauth"
)

// Context keys set by Middleware.
const (
	ContextKeySession = "auth_session"
	ContextKeyResult  = "auth_result"
)

type options struct {
	logger   observe.Logger
	optional bool
}

// Option configures Middleware.
type Option func(*options)

// WithLogger logs failures with their internal reason.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// OptionalToken lets requests without an Authorization header reach the
// operation's checks with a nil session.
func OptionalToken() Option {
	return func(o *options) {
		o.optional = true
	}
}

// Middleware guards routes with op. The session and check results are
// stored on the echo context and on the request context.
func Middleware(resolver *auth.SessionResolver, op *auth.Operation, opts ...Option) echo.MiddlewareFunc {
	if resolver == nil || op == nil {
		panic("echoauth: Middleware requires a resolver and an operation")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := auth.WithHeaders(req.Context(), req.Header)
			ctx = auth.WithQuery(ctx, req.URL.Query())

			ctx, err := httpauth.Authorize(ctx, resolver, op, req.Header.Get(echo.HeaderAuthorization), o.optional)
			if err != nil {
				httpauth.LogFailure(ctx, o.logger, op.Name(), err)
				return respondError(c, err)
			}

			c.SetRequest(req.WithContext(ctx))
			c.Set(ContextKeySession, auth.SessionFromContext(ctx))
			c.Set(ContextKeyResult, auth.ResultFromContext(ctx))
			return next(c)
		}
	}
}

// TokenHandler serves the password-grant token endpoint.
func TokenHandler(authn *auth.Authenticator, codec *auth.TokenCodec, opts ...httpauth.Option) echo.HandlerFunc {
	return echo.WrapHandler(httpauth.TokenHandler(authn, codec, opts...))
}

// RateLimit rejects requests with 429 once the client's bucket is empty,
// keyed by c.RealIP().
func RateLimit(l *resilience.KeyedRateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.Limit()))

			if !l.Allow(key) {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(l.RetryAfter().Seconds()))))
				return c.JSON(http.StatusTooManyRequests, httpauth.ErrorResponse{Detail: "Too many requests"})
			}
			h.Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(key)))
			return next(c)
		}
	}
}

// Session returns the session stored by Middleware, or nil.
func Session(c echo.Context) *auth.Session {
	s, _ := c.Get(ContextKeySession).(*auth.Session)
	return s
}

// Result returns the check results stored by Middleware, or nil.
func Result(c echo.Context) *auth.Result {
	r, _ := c.Get(ContextKeyResult).(*auth.Result)
	return r
}

func respondError(c echo.Context, err error) error {
	status := httpauth.StatusCode(err)
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return c.JSON(status, httpauth.ErrorResponse{Detail: auth.PublicMessage(err)})
}
