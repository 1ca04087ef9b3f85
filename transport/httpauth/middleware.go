package httpauth

import (
	"context"
	"net/http"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/observe"
)

// Middleware guards handlers with op.
//
// For each request it copies headers and query parameters into the
// context, resolves the bearer token, runs op's checks and stores the
// session and results with auth.WithSession and auth.WithResult before
// calling the next handler. A missing token is rejected unless
// OptionalToken is set.
func Middleware(resolver *auth.SessionResolver, op *auth.Operation, opts ...Option) func(http.Handler) http.Handler {
	if resolver == nil || op == nil {
		panic("httpauth: Middleware requires a resolver and an operation")
	}
	o := buildOptions(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(w, r, o.limiter, o.keyFunc) {
				return
			}

			ctx := auth.WithHeaders(r.Context(), r.Header)
			ctx = auth.WithQuery(ctx, r.URL.Query())

			ctx, err := Authorize(ctx, resolver, op, r.Header.Get("Authorization"), o.optional)
			if err != nil {
				LogFailure(ctx, o.logger, op.Name(), err)
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize resolves an Authorization header value and runs op. On success
// the returned context carries the session (if any) and the check results.
// Adapters for other routers build on it.
func Authorize(ctx context.Context, resolver *auth.SessionResolver, op *auth.Operation, header string, optional bool) (context.Context, error) {
	var session *auth.Session
	if header == "" {
		if !optional {
			return ctx, auth.ErrMissingCredentials
		}
	} else {
		token, ok := auth.ExtractBearer(header)
		if !ok {
			return ctx, auth.ErrMissingCredentials
		}
		s, err := resolver.Resolve(ctx, token)
		if err != nil {
			return ctx, err
		}
		session = s
		ctx = auth.WithSession(ctx, s)
	}

	res, err := op.Authorize(ctx, session)
	if err != nil {
		return ctx, err
	}
	return auth.WithResult(ctx, res), nil
}

// LogFailure logs err with its outcome and internal reason. Internal
// failures are logged at error level with the error text; other failures
// at warn level. A nil logger does nothing.
func LogFailure(ctx context.Context, l observe.Logger, operation string, err error) {
	if l == nil {
		return
	}
	fields := []observe.Field{
		{Key: "operation", Value: operation},
		{Key: "outcome", Value: auth.Classify(err).String()},
		{Key: "reason", Value: auth.FailureReason(err)},
	}
	if auth.Classify(err) == auth.OutcomeInternal {
		l.Error(ctx, "request failed", append(fields, observe.Field{Key: "error", Value: err.Error()})...)
		return
	}
	l.Warn(ctx, "request rejected", fields...)
}
