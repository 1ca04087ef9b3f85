package auth

import "net/http"

// WithRequestValues is HTTP middleware that copies request headers and
// query parameters into the context for header and query checks.
//
// Usage:
//
//	mux.Handle("/items/", auth.WithRequestValues(itemsHandler))
func WithRequestValues(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithHeaders(r.Context(), r.Header)
		ctx = WithQuery(ctx, r.URL.Query())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
