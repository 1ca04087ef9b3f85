package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Keyer derives cache keys from a namespace and a record identifier.
//
// Contract:
// - Determinism: the same namespace and id always produce the same key.
// - Distinctness: different ids within a namespace produce different keys.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(namespace, id string) (string, error)
}

// DefaultKeyer hashes identifiers with SHA-256 so keys have a fixed length
// and never contain the raw identifier.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns "<namespace>:<hex sha256(id)[:16 bytes]>".
func (k *DefaultKeyer) Key(namespace, id string) (string, error) {
	if namespace == "" {
		return "", errors.New("cache: empty key namespace")
	}
	sum := sha256.Sum256([]byte(id))
	key := namespace + ":" + hex.EncodeToString(sum[:16])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
