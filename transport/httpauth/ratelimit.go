package httpauth

import (
	"math"
	"net/http"
	"strconv"

	"github.com/jonwraymond/tokenauth/resilience"
)

// RateLimit rejects requests with 429 once the caller's bucket is empty.
// Every response carries X-RateLimit-Limit and X-RateLimit-Remaining.
func RateLimit(l *resilience.KeyedRateLimiter, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientAddr
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(w, r, l, key) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow applies l to r and writes the 429 response when it refuses.
func allow(w http.ResponseWriter, r *http.Request, l *resilience.KeyedRateLimiter, key KeyFunc) bool {
	if l == nil {
		return true
	}
	k := key(r)
	ok := l.Allow(k)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(l.Limit()))
	if !ok {
		h.Set("X-RateLimit-Remaining", "0")
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(l.RetryAfter().Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Detail: "Too many requests"})
		return false
	}
	h.Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(k)))
	return true
}
