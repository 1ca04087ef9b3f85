package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// LoadFunc fetches the encoded record for id on a cache miss.
type LoadFunc func(ctx context.Context, id string) ([]byte, error)

// ReadThrough serves records from a Cache and loads misses with a LoadFunc.
//
// Contract:
//   - Concurrency: safe for concurrent use; concurrent misses for the same
//     key share one load.
//   - Errors: load errors are returned and never cached. Cache failures are
//     ignored and fall back to loading.
type ReadThrough struct {
	cache     Cache
	keyer     Keyer
	policy    Policy
	namespace string
	group     singleflight.Group
}

// NewReadThrough creates a loader. A nil keyer selects DefaultKeyer.
func NewReadThrough(c Cache, keyer Keyer, policy Policy, namespace string) *ReadThrough {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &ReadThrough{
		cache:     c,
		keyer:     keyer,
		policy:    policy,
		namespace: namespace,
	}
}

// Load returns the record for id from cache, or via load on a miss.
func (r *ReadThrough) Load(ctx context.Context, id string, load LoadFunc) ([]byte, error) {
	if r.cache == nil || !r.policy.ShouldCache() {
		return load(ctx, id)
	}

	key, err := r.keyer.Key(r.namespace, id)
	if err != nil {
		return load(ctx, id)
	}

	if cached, ok := r.cache.Get(ctx, key); ok {
		return cached, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		value, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		_ = r.cache.Set(ctx, key, value, r.policy.EffectiveTTL(0))
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops the cached record for id.
func (r *ReadThrough) Invalidate(ctx context.Context, id string) error {
	if r.cache == nil {
		return ErrNilCache
	}
	key, err := r.keyer.Key(r.namespace, id)
	if err != nil {
		return err
	}
	return r.cache.Delete(ctx, key)
}
