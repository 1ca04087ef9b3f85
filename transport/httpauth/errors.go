package httpauth

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/tokenauth/auth"
)

// ErrorResponse is the JSON body written for failures.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusCode maps an auth error to an HTTP status.
func StatusCode(err error) int {
	switch auth.Classify(err) {
	case auth.OutcomeOK:
		return http.StatusOK
	case auth.OutcomeUnauthenticated:
		return http.StatusUnauthorized
	case auth.OutcomeInactive:
		return http.StatusBadRequest
	case auth.OutcomeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the status and generic message for err. 401 responses
// carry a Bearer challenge.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, ErrorResponse{Detail: auth.PublicMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
