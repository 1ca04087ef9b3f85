package auth

import (
	"context"
	"fmt"
	"net/textproto"
)

// Built-in check names.
const (
	CheckAuthenticated = "authenticated"
	CheckAccountActive = "account_active"
)

// Authenticated denies requests without a resolved session.
func Authenticated() Check {
	return Gate(CheckAuthenticated, func(_ context.Context, s *Session) error {
		if s == nil || s.Account == nil {
			return ErrUnauthenticated
		}
		return nil
	})
}

// AccountActive denies sessions whose account is disabled. The denial
// classifies as OutcomeInactive.
func AccountActive() Check {
	return Gate(CheckAccountActive, func(_ context.Context, s *Session) error {
		if s == nil || s.Account == nil {
			return ErrUnauthenticated
		}
		if !s.Account.Active {
			return ErrAccountInactive
		}
		return nil
	})
}

// HasAttribute requires the account attribute key to equal value exactly.
func HasAttribute(key, value string) Check {
	return Gate("has_attribute:"+key, func(_ context.Context, s *Session) error {
		if s == nil || s.Account == nil {
			return ErrUnauthenticated
		}
		got, ok := s.Account.Attribute(key)
		if !ok || !ConstantTimeCompare(got, value) {
			return fmt.Errorf("attribute %q does not match", key)
		}
		return nil
	})
}

// HasRole requires the account to list role in its roles attribute.
func HasRole(role string) Check {
	return Gate("role:"+role, func(_ context.Context, s *Session) error {
		if s == nil || s.Account == nil {
			return ErrUnauthenticated
		}
		if !s.Account.HasRole(role) {
			return fmt.Errorf("role %q not granted", role)
		}
		return nil
	})
}

// RequireHeader requires request header name to equal expected, compared in
// constant time. On success it supplies the header value under the check
// name "header:<Canonical-Name>". Headers are read from the context; see
// WithHeaders.
func RequireHeader(name, expected string) Check {
	name = textproto.CanonicalMIMEHeaderKey(name)
	return Supply("header:"+name, func(ctx context.Context, _ *Session) (any, error) {
		got := GetHeader(ctx, name)
		if got == "" {
			return nil, fmt.Errorf("%s header missing", name)
		}
		if !ConstantTimeCompare(got, expected) {
			return nil, fmt.Errorf("%s header invalid", name)
		}
		return got, nil
	})
}

// RequireQuery requires query parameter name to equal expected. On success
// it supplies the value under "query:<name>".
func RequireQuery(name, expected string) Check {
	return Supply("query:"+name, func(ctx context.Context, _ *Session) (any, error) {
		got := GetQuery(ctx, name)
		if got == "" {
			return nil, fmt.Errorf("%s query parameter missing", name)
		}
		if !ConstantTimeCompare(got, expected) {
			return nil, fmt.Errorf("%s query parameter invalid", name)
		}
		return got, nil
	})
}
