package auth

import (
	"context"
	"net/textproto"
	"net/url"
)

// Context keys for auth-related values.
type contextKey int

const (
	sessionKey contextKey = iota
	resultKey
	headersKey
	queryKey
)

// WithSession returns a new context with the given session attached.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext retrieves the session from the context.
// Returns nil if no session is present.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// AccountFromContext retrieves the session's account from the context.
// Returns nil if no session is present.
func AccountFromContext(ctx context.Context) *Account {
	s := SessionFromContext(ctx)
	if s == nil {
		return nil
	}
	return s.Account
}

// WithResult returns a new context carrying a passing pipeline result.
func WithResult(ctx context.Context, r *Result) context.Context {
	return context.WithValue(ctx, resultKey, r)
}

// ResultFromContext retrieves the pipeline result from the context.
func ResultFromContext(ctx context.Context) *Result {
	r, _ := ctx.Value(resultKey).(*Result)
	return r
}

// WithHeaders returns a new context with the given request headers attached.
// Header checks read credentials from here.
func WithHeaders(ctx context.Context, headers map[string][]string) context.Context {
	return context.WithValue(ctx, headersKey, headers)
}

// HeadersFromContext retrieves request headers from the context.
// Returns nil if no headers are present.
func HeadersFromContext(ctx context.Context) map[string][]string {
	h, _ := ctx.Value(headersKey).(map[string][]string)
	return h
}

// GetHeader retrieves a single header value from the context.
// The key is canonicalized, so "x-token" finds "X-Token". Returns the
// first value if multiple values exist, or empty string if not found.
func GetHeader(ctx context.Context, key string) string {
	headers := HeadersFromContext(ctx)
	if headers == nil {
		return ""
	}
	values, ok := headers[textproto.CanonicalMIMEHeaderKey(key)]
	if !ok {
		values = headers[key]
	}
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// WithQuery returns a new context with the request's query parameters.
func WithQuery(ctx context.Context, q url.Values) context.Context {
	return context.WithValue(ctx, queryKey, q)
}

// GetQuery returns the first value of a query parameter from the context.
func GetQuery(ctx context.Context, key string) string {
	q, _ := ctx.Value(queryKey).(url.Values)
	return q.Get(key)
}
