package auth

import (
	"context"
	"time"

	"github.com/jonwraymond/tokenauth/health"
)

// KeyChecker reports whether a TokenCodec can issue and verify tokens.
type KeyChecker struct {
	codec *TokenCodec
}

// NewKeyChecker creates a health checker for codec.
func NewKeyChecker(codec *TokenCodec) *KeyChecker {
	return &KeyChecker{codec: codec}
}

// Name returns "signing_key".
func (c *KeyChecker) Name() string {
	return "signing_key"
}

// Check issues a short-lived check token and verifies it.
func (c *KeyChecker) Check(_ context.Context) health.Result {
	start := time.Now()

	tok, err := c.codec.Issue("health-check", time.Minute)
	if err != nil {
		return health.Unhealthy("token issue failed", err).WithDuration(time.Since(start))
	}
	if _, err := c.codec.Verify(tok.Value); err != nil {
		return health.Unhealthy("token round trip failed", err).WithDuration(time.Since(start))
	}
	return health.Healthy("signing key usable").WithDuration(time.Since(start))
}

// Ensure KeyChecker implements health.Checker
var _ health.Checker = (*KeyChecker)(nil)
