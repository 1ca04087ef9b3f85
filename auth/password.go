package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies account secrets.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Hash: every call uses a fresh random salt, so two hashes of the same
//   secret never compare equal as strings.
// - Verify: must not panic on attacker-controlled input; a malformed hash
//   verifies as false.
type PasswordHasher interface {
	// Hash returns an encoded hash of secret.
	Hash(secret string) (string, error)

	// Verify reports whether secret matches hash.
	Verify(secret, hash string) bool
}

const (
	// DefaultHashCost is the default bcrypt cost factor.
	DefaultHashCost = 12

	// MaxSecretBytes is the longest secret bcrypt can distinguish.
	MaxSecretBytes = 72
)

// ErrSecretTooLong is returned by Hash for secrets over MaxSecretBytes.
var ErrSecretTooLong = errors.New("auth: secret exceeds 72 bytes")

// fallbackDummyHash is a cost-12 hash of a random string, used only if the
// per-hasher dummy hash cannot be generated.
const fallbackDummyHash = "$2a$12$dWR5CQpS4zNHLavLSIr4o.P6QDQEUJKv7mJ7WekUHHqyRSRMJzH0S"

// BcryptHasher is a PasswordHasher backed by bcrypt.
type BcryptHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     string
}

// NewBcryptHasher creates a bcrypt hasher. A cost <= 0 selects
// DefaultHashCost; other values are clamped to bcrypt's supported range.
func NewBcryptHasher(cost int) *BcryptHasher {
	// Apply defaults
	switch {
	case cost <= 0:
		cost = DefaultHashCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the configured cost factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash generates a salted bcrypt hash of secret.
func (h *BcryptHasher) Hash(secret string) (string, error) {
	if len(secret) > MaxSecretBytes {
		return "", ErrSecretTooLong
	}
	out, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash secret: %w", err)
	}
	return string(out), nil
}

// Verify checks secret against hash. Malformed hashes and over-long
// secrets return false.
func (h *BcryptHasher) Verify(secret, hash string) bool {
	if len(secret) > MaxSecretBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// NeedsRehash reports whether hash was produced with a lower cost than the
// hasher's. Unparseable hashes always need a rehash.
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.cost
}

// DummyHash returns a hash at the hasher's own cost that no caller knows
// the secret for. Verifying against it costs the same as a real verify.
func (h *BcryptHasher) DummyHash() string {
	h.dummyOnce.Do(func() {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			h.dummy = fallbackDummyHash
			return
		}
		out, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)[:MaxSecretBytes/2]), h.cost)
		if err != nil {
			h.dummy = fallbackDummyHash
			return
		}
		h.dummy = string(out)
	})
	return h.dummy
}

// Ensure BcryptHasher implements PasswordHasher
var _ PasswordHasher = (*BcryptHasher)(nil)
