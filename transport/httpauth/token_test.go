package httpauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/resilience"
)

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func credentials(user, pass string) url.Values {
	return url.Values{"grant_type": {"password"}, "username": {user}, "password": {pass}}
}

func TestTokenHandler_Form(t *testing.T) {
	f := newFixture(t)
	h := TokenHandler(f.authn, f.codec)

	rec := postForm(h, credentials("johndoe", testPassword))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("token responses must not be cached")
	}

	var resp auth.TokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", resp.TokenType)
	}
	tok, err := f.codec.Verify(resp.AccessToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if tok.Subject != "johndoe" {
		t.Errorf("Subject = %q, want johndoe", tok.Subject)
	}
}

func TestTokenHandler_JSON(t *testing.T) {
	f := newFixture(t)
	h := TokenHandler(f.authn, f.codec)

	rec := postJSON(h, `{"username":"johndoe","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestTokenHandler_UniformFailure(t *testing.T) {
	f := newFixture(t)
	h := TokenHandler(f.authn, f.codec)

	unknown := postForm(h, credentials("nobody", testPassword))
	wrong := postForm(h, credentials("johndoe", "wrong"))

	for name, rec := range map[string]*httptest.ResponseRecorder{"unknown user": unknown, "wrong password": wrong} {
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
		if rec.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Errorf("%s: missing Bearer challenge", name)
		}
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("bodies differ: %q vs %q", unknown.Body, wrong.Body)
	}
	if got := decodeDetail(t, wrong); got != auth.MessageInvalidCredentials {
		t.Errorf("detail = %q", got)
	}
}

func TestTokenHandler_InactiveAccountStillGetsToken(t *testing.T) {
	f := newFixture(t)
	rec := postForm(TokenHandler(f.authn, f.codec), credentials("alice", testPassword))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200; activity is enforced on protected operations", rec.Code)
	}
}

func TestTokenHandler_BadRequests(t *testing.T) {
	f := newFixture(t)
	h := TokenHandler(f.authn, f.codec)

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{"wrong method", http.MethodGet, "", "", http.StatusMethodNotAllowed},
		{"unsupported media", http.MethodPost, "text/plain", "johndoe:secret", http.StatusUnsupportedMediaType},
		{"malformed json", http.MethodPost, "application/json", "{", http.StatusBadRequest},
		{"missing password", http.MethodPost, "application/x-www-form-urlencoded", "username=johndoe", http.StatusUnprocessableEntity},
		{"other grant", http.MethodPost, "application/x-www-form-urlencoded", "grant_type=client_credentials&username=a&password=b", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/token", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTokenHandler_RateLimited(t *testing.T) {
	f := newFixture(t)
	limiter := resilience.NewKeyedRateLimiter(resilience.KeyedRateLimiterConfig{
		RateLimiterConfig: resilience.RateLimiterConfig{Rate: 0.5, Burst: 1},
	})
	h := TokenHandler(f.authn, f.codec, WithRateLimit(limiter, nil))

	first := postForm(h, credentials("johndoe", "wrong"))
	if first.Code != http.StatusUnauthorized {
		t.Fatalf("first status = %d, want 401", first.Code)
	}
	if first.Header().Get("X-RateLimit-Limit") != "1" {
		t.Errorf("X-RateLimit-Limit = %q", first.Header().Get("X-RateLimit-Limit"))
	}

	second := postForm(h, credentials("johndoe", testPassword))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if got := second.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}
