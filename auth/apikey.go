package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"sync"
	"time"
)

// DefaultAPIKeyHeader is the header RequireAPIKey reads by default.
const DefaultAPIKeyHeader = "X-Key"

// CheckAPIKey is the name of the check built by RequireAPIKey.
const CheckAPIKey = "api_key"

// APIKeyInfo describes a registered API key.
type APIKeyInfo struct {
	// ID is a unique identifier for this key.
	ID string

	// KeyHash is the hashed API key (SHA-256 hex).
	KeyHash string

	// Owner names the client the key was issued to.
	Owner string

	// ExpiresAt is when this key expires (zero = never).
	ExpiresAt time.Time

	// Metadata contains additional key metadata.
	Metadata map[string]string
}

// Expired reports whether the key is past its expiry at now.
func (i *APIKeyInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// APIKeyStore provides storage for API keys.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Lookup returns (nil, nil) for unknown hashes.
type APIKeyStore interface {
	// Lookup retrieves an API key by its hash.
	Lookup(ctx context.Context, keyHash string) (*APIKeyInfo, error)
}

// RequireAPIKey requires header to carry a key registered in store. On
// success it supplies the matching *APIKeyInfo under CheckAPIKey.
// An empty header selects DefaultAPIKeyHeader.
func RequireAPIKey(header string, store APIKeyStore) Check {
	return requireAPIKey(header, store, time.Now)
}

func requireAPIKey(header string, store APIKeyStore, now func() time.Time) Check {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	header = textproto.CanonicalMIMEHeaderKey(header)

	return Supply(CheckAPIKey, func(ctx context.Context, _ *Session) (any, error) {
		key := strings.TrimSpace(GetHeader(ctx, header))
		if key == "" {
			return nil, fmt.Errorf("%s header missing", header)
		}

		info, err := store.Lookup(ctx, HashAPIKey(key))
		if err != nil {
			return nil, fmt.Errorf("api key lookup: %w", err)
		}
		if info == nil {
			return nil, errors.New("api key not registered")
		}
		if info.Expired(now()) {
			return nil, fmt.Errorf("api key %s expired", info.ID)
		}
		return info, nil
	})
}

// HashAPIKey hashes an API key using SHA-256 for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// ConstantTimeCompare performs constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// MemoryAPIKeyStore is an in-memory API key store.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo // keyed by hash
}

// NewMemoryAPIKeyStore creates a new in-memory API key store.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{
		keys: make(map[string]*APIKeyInfo),
	}
}

// Lookup retrieves an API key by its hash.
func (s *MemoryAPIKeyStore) Lookup(_ context.Context, keyHash string) (*APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[keyHash], nil
}

// Add adds an API key to the store.
func (s *MemoryAPIKeyStore) Add(info *APIKeyInfo) error {
	if info == nil || info.KeyHash == "" {
		return errors.New("auth: api key info requires a key hash")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[info.KeyHash] = info
	return nil
}

// Register hashes a plaintext key and stores it under id.
func (s *MemoryAPIKeyStore) Register(id, owner, key string) (*APIKeyInfo, error) {
	info := &APIKeyInfo{ID: id, Owner: owner, KeyHash: HashAPIKey(key)}
	if err := s.Add(info); err != nil {
		return nil, err
	}
	return info, nil
}

// Remove removes an API key from the store.
func (s *MemoryAPIKeyStore) Remove(keyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, keyHash)
	return nil
}

// Ensure MemoryAPIKeyStore implements APIKeyStore
var _ APIKeyStore = (*MemoryAPIKeyStore)(nil)
