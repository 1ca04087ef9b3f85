package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestValues(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if HeadersFromContext(r.Context()) == nil {
			t.Error("Headers not found in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if got := GetHeader(r.Context(), "X-Token"); got != "fake-super-secret-token" {
			t.Errorf("X-Token = %v, want fake-super-secret-token", got)
		}
		if got := GetQuery(r.Context(), "token"); got != "jessica" {
			t.Errorf("token = %v, want jessica", got)
		}

		w.WriteHeader(http.StatusOK)
	})

	handler := WithRequestValues(testHandler)

	req := httptest.NewRequest(http.MethodGet, "/items/?token=jessica", nil)
	req.Header.Set("X-Token", "fake-super-secret-token")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestWithRequestValues_MultipleValues(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v := HeadersFromContext(r.Context())["Accept"]; len(v) != 2 {
			t.Errorf("Accept has %d values, want 2", len(v))
		}
		if got := GetHeader(r.Context(), "Accept"); got != "text/html" {
			t.Errorf("Accept = %v, want text/html", got)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Add("Accept", "text/html")
	req.Header.Add("Accept", "application/json")

	rr := httptest.NewRecorder()
	WithRequestValues(testHandler).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rr.Code, http.StatusOK)
	}
}
