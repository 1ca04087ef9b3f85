package httpauth

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/jonwraymond/tokenauth/auth"
)

// maxTokenRequestBytes bounds a token request body.
const maxTokenRequestBytes = 1 << 16

// PasswordGrant is the only supported grant_type.
const PasswordGrant = "password"

// TokenRequest is a password-grant credential submission.
type TokenRequest struct {
	GrantType string `json:"grant_type,omitempty"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// TokenHandler exchanges a username and password for a bearer token.
//
// It accepts POST bodies encoded as application/x-www-form-urlencoded (the
// OAuth2 password grant) or JSON, and answers with auth.TokenResponse.
// Unknown usernames and wrong passwords produce the same 401 response.
func TokenHandler(authn *auth.Authenticator, codec *auth.TokenCodec, opts ...Option) http.Handler {
	if authn == nil || codec == nil {
		panic("httpauth: TokenHandler requires an authenticator and a codec")
	}
	o := buildOptions(opts)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method not allowed"})
			return
		}
		if !allow(w, r, o.limiter, o.keyFunc) {
			return
		}

		req, ok := decodeTokenRequest(w, r)
		if !ok {
			return
		}

		tok, err := auth.Login(r.Context(), authn, codec, req.Username, req.Password)
		if err != nil {
			LogFailure(r.Context(), o.logger, "token", err)
			WriteError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, auth.NewTokenResponse(tok))
	})
}

func decodeTokenRequest(w http.ResponseWriter, r *http.Request) (TokenRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTokenRequestBytes)

	var req TokenRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Malformed request body"})
			return req, false
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Malformed request body"})
			return req, false
		}
		req.GrantType = r.PostForm.Get("grant_type")
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	default:
		writeJSON(w, http.StatusUnsupportedMediaType, ErrorResponse{Detail: "Unsupported content type"})
		return req, false
	}

	if req.GrantType != "" && req.GrantType != PasswordGrant {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "unsupported_grant_type"})
		return req, false
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "username and password are required"})
		return req, false
	}
	return req, true
}
