// Package httpauth adapts the auth package to net/http.
//
// Middleware resolves the bearer token on a request, runs an
// auth.Operation's checks and stores the session and check results on the
// request context. TokenHandler implements the OAuth2 password grant.
//
// Failures map to status codes:
//
//   - unauthenticated: 401 with WWW-Authenticate: Bearer
//   - inactive account: 400
//   - forbidden: 403
//   - anything else: 500
//
// Response bodies carry only the generic auth.PublicMessage text.
package httpauth
