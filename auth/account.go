package auth

import (
	"strings"
	"time"
)

// Account is a directory record for a principal that can authenticate.
//
// Accounts are owned by a Directory and treated as read-only by this
// package. They are created and mutated by an external administrative
// process.
type Account struct {
	// ID is the unique, case-sensitive identifier.
	ID string

	// PasswordHash is the stored PasswordHasher output.
	PasswordHash string

	// Active reports whether the account may use protected operations.
	Active bool

	// Attributes carries scopes, roles and other authorization data.
	Attributes map[string]string
}

// Attribute returns an attribute value and whether it is set.
func (a *Account) Attribute(key string) (string, bool) {
	if a == nil || a.Attributes == nil {
		return "", false
	}
	v, ok := a.Attributes[key]
	return v, ok
}

// RolesAttribute is the attribute holding a comma separated role list.
const RolesAttribute = "roles"

// Roles returns the roles listed in the roles attribute.
func (a *Account) Roles() []string {
	raw, ok := a.Attribute(RolesAttribute)
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

// HasRole checks if the account lists a specific role.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate directory state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Attributes != nil {
		c.Attributes = make(map[string]string, len(a.Attributes))
		for k, v := range a.Attributes {
			c.Attributes[k] = v
		}
	}
	return &c
}

// Token is a verified or freshly issued bearer token.
type Token struct {
	// Value is the encoded token presented by clients.
	Value string

	// Subject is the account identifier the token authenticates.
	Subject string

	// ID is the unique token identifier (jti).
	ID string

	// IssuedAt is when the token was signed.
	IssuedAt time.Time

	// ExpiresAt is when the token stops being valid.
	ExpiresAt time.Time
}

// Session is the per-request result of resolving a bearer token.
// It is never persisted.
type Session struct {
	Account *Account
	Token   *Token
}

// Subject returns the account identifier, or empty string for a nil session.
func (s *Session) Subject() string {
	if s == nil || s.Account == nil {
		return ""
	}
	return s.Account.ID
}

// TokenResponse is the issuance payload returned to bearer clients.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// NewTokenResponse wraps a token in the bearer response shape.
func NewTokenResponse(t *Token) TokenResponse {
	return TokenResponse{AccessToken: t.Value, TokenType: "bearer"}
}
