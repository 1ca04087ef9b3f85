package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token codec defaults.
const (
	// DefaultTokenTTL is the lifetime of tokens issued without an explicit TTL.
	DefaultTokenTTL = 30 * time.Minute

	// MinSigningKeyBytes is the shortest HMAC key NewTokenCodec accepts.
	MinSigningKeyBytes = 32
)

// ErrSigningKeyTooShort is returned by NewTokenCodec for keys below
// MinSigningKeyBytes.
var ErrSigningKeyTooShort = errors.New("auth: signing key too short")

// TokenConfig configures a TokenCodec.
type TokenConfig struct {
	// SigningKey is the HMAC-SHA256 secret (required, at least 32 bytes).
	SigningKey []byte

	// TTL is the default token lifetime.
	// Default: 30 minutes
	TTL time.Duration

	// ClockSkew is the leeway applied to exp and iat checks. A token is
	// accepted while now <= exp + ClockSkew.
	// Default: 0
	ClockSkew time.Duration

	// Issuer is written to and required in the iss claim when set.
	Issuer string

	// Now overrides the clock used for issuing and validating.
	// Default: time.Now
	Now func() time.Time
}

// TokenCodec issues and verifies signed HS256 bearer tokens.
//
// Contract:
//   - Concurrency: safe for concurrent use; the codec is immutable.
//   - Verify succeeds only for tokens this codec (or one sharing its key)
//     issued, unmodified, before expiry.
//   - Errors: Verify returns *TokenError, matchable with ErrUnauthenticated.
type TokenCodec struct {
	key    []byte
	ttl    time.Duration
	skew   time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// signatureEncoding decodes the third segment. Strict rejects non-zero
// padding bits so every bit of the encoded signature is significant.
var signatureEncoding = base64.RawURLEncoding.Strict()

// NewTokenCodec creates a codec from cfg.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if len(cfg.SigningKey) < MinSigningKeyBytes {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrSigningKeyTooShort, len(cfg.SigningKey), MinSigningKeyBytes)
	}

	// Apply defaults
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.ClockSkew < 0 {
		cfg.ClockSkew = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// Time and issuer claims are validated by Verify against the codec's
	// own clock so the expiry boundary is inclusive.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &TokenCodec{
		key:    key,
		ttl:    cfg.TTL,
		skew:   cfg.ClockSkew,
		issuer: cfg.Issuer,
		now:    cfg.Now,
		parser: parser,
	}, nil
}

// TTL returns the default token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject. A ttl of zero or less uses the codec's
// default lifetime.
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (*Token, error) {
	if subject == "" {
		return nil, fmt.Errorf("auth: issue token: %w", ErrTokenMissingSubject)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	// NumericDate has second precision.
	now := c.now().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    c.issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}

	return &Token{
		Value:     signed,
		Subject:   subject,
		ID:        claims.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Verify checks value's signature and expiry and returns its claims.
//
// The HS256 MAC over "header.payload" is checked before the header or
// claims are decoded, so any alteration of a well-formed token fails with
// ReasonBadSignature. Only values without a segment separator are
// ReasonMalformed.
func (c *TokenCodec) Verify(value string) (*Token, error) {
	if value == "" {
		return nil, tokenError(ReasonMalformed, ErrMissingCredentials)
	}

	dot := strings.LastIndexByte(value, '.')
	if dot < 0 {
		return nil, tokenError(ReasonMalformed, jwt.ErrTokenMalformed)
	}
	sig, err := signatureEncoding.DecodeString(value[dot+1:])
	if err != nil {
		return nil, tokenError(ReasonBadSignature, err)
	}
	if err := jwt.SigningMethodHS256.Verify(value[:dot], sig, c.key); err != nil {
		return nil, tokenError(ReasonBadSignature, err)
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := c.parser.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}); err != nil {
		return nil, tokenError(jwtReason(err), err)
	}
	if err := c.validateClaims(claims); err != nil {
		return nil, err
	}

	tok := &Token{
		Value:     value,
		Subject:   claims.Subject,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		tok.IssuedAt = claims.IssuedAt.Time
	}
	return tok, nil
}

// validateClaims applies the time, issuer and subject rules to a token
// whose signature is already verified. ExpiresAt is non-nil on success.
func (c *TokenCodec) validateClaims(claims *jwt.RegisteredClaims) error {
	now := c.now()

	if claims.ExpiresAt == nil {
		return tokenError(ReasonMalformed, jwt.ErrTokenRequiredClaimMissing)
	}
	if now.After(claims.ExpiresAt.Time.Add(c.skew)) {
		return tokenError(ReasonExpired, jwt.ErrTokenExpired)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now.Add(c.skew)) {
		return tokenError(ReasonMalformed, jwt.ErrTokenUsedBeforeIssued)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return tokenError(ReasonMalformed, jwt.ErrTokenInvalidIssuer)
	}
	if claims.Subject == "" {
		return tokenError(ReasonMissingSubject, nil)
	}
	return nil
}

// jwtReason maps a jwt parse error to a TokenReason. The signature has
// already been verified, so remaining failures describe a token this
// configuration did not mint.
func jwtReason(err error) TokenReason {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonBadSignature
	default:
		return ReasonMalformed
	}
}
