package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/cache"
)

// cacheNamespace prefixes account cache keys.
const cacheNamespace = "account"

// accountRecord is the cached encoding of an account.
type accountRecord struct {
	ID           string            `json:"id"`
	PasswordHash string            `json:"password_hash"`
	Active       bool              `json:"active"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// Cached serves lookups from a cache and falls through to another
// directory on a miss. Only found accounts are cached.
//
// Cached accounts may be stale for up to the policy TTL: a deactivated or
// deleted account keeps resolving until its entry expires or Invalidate is
// called.
type Cached struct {
	next   auth.Directory
	loader *cache.ReadThrough
}

// NewCached wraps next with a read-through cache. A nil cache or a policy
// with a zero TTL disables caching.
func NewCached(next auth.Directory, c cache.Cache, policy cache.Policy) *Cached {
	return &Cached{
		next:   next,
		loader: cache.NewReadThrough(c, nil, policy, cacheNamespace),
	}
}

// Lookup returns the cached account or loads it from the wrapped directory.
func (d *Cached) Lookup(ctx context.Context, id string) (*auth.Account, error) {
	data, err := d.loader.Load(ctx, id, d.load)
	if err != nil {
		return nil, err
	}

	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("directory: decode cached account: %w", err)
	}
	return &auth.Account{
		ID:           rec.ID,
		PasswordHash: rec.PasswordHash,
		Active:       rec.Active,
		Attributes:   rec.Attributes,
	}, nil
}

// Invalidate drops id from the cache.
func (d *Cached) Invalidate(ctx context.Context, id string) error {
	return d.loader.Invalidate(ctx, id)
}

func (d *Cached) load(ctx context.Context, id string) ([]byte, error) {
	acct, err := d.next.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(accountRecord{
		ID:           acct.ID,
		PasswordHash: acct.PasswordHash,
		Active:       acct.Active,
		Attributes:   acct.Attributes,
	})
}

// Ensure Cached implements auth.Directory
var _ auth.Directory = (*Cached)(nil)
