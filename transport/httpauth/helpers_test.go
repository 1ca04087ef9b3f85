package httpauth

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/jonwraymond/tokenauth/auth"
)

const (
	testKey      = "0123456789abcdef0123456789abcdef"
	testPassword = "secret"
)

type fixture struct {
	dir      *auth.MemoryDirectory
	authn    *auth.Authenticator
	codec    *auth.TokenCodec
	resolver *auth.SessionResolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	dir := auth.NewMemoryDirectory(
		&auth.Account{ID: "johndoe", PasswordHash: hash, Active: true, Attributes: map[string]string{"roles": "admin"}},
		&auth.Account{ID: "alice", PasswordHash: hash, Active: false},
	)
	codec, err := auth.NewTokenCodec(auth.TokenConfig{SigningKey: []byte(testKey)})
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return &fixture{
		dir:      dir,
		authn:    auth.NewAuthenticator(dir, hasher),
		codec:    codec,
		resolver: auth.NewSessionResolver(codec, dir),
	}
}

func (f *fixture) bearer(t *testing.T, subject string) string {
	t.Helper()
	tok, err := f.codec.Issue(subject, 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return "Bearer " + tok.Value
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.Detail
}
