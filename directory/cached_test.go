package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/cache"
)

func newCachedDirectory(policy cache.Policy) (*Cached, *countingDirectory) {
	backing := &countingDirectory{next: auth.NewMemoryDirectory(testAccount())}
	return NewCached(backing, cache.NewMemoryCache(policy), policy), backing
}

func TestCached_ServesFromCache(t *testing.T) {
	d, backing := newCachedDirectory(cache.Policy{DefaultTTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := d.Lookup(ctx, "alice")
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if got.ID != "alice" || got.Attributes["tenant"] != "acme" || !got.Active {
			t.Errorf("Lookup() = %+v", got)
		}
	}
	if n := backing.calls.Load(); n != 1 {
		t.Errorf("backing lookups = %d, want 1", n)
	}
}

func TestCached_DoesNotCacheMisses(t *testing.T) {
	d, backing := newCachedDirectory(cache.Policy{DefaultTTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := d.Lookup(ctx, "ghost"); !errors.Is(err, auth.ErrAccountNotFound) {
			t.Fatalf("Lookup() error = %v, want ErrAccountNotFound", err)
		}
	}
	if n := backing.calls.Load(); n != 2 {
		t.Errorf("backing lookups = %d, want 2", n)
	}
}

func TestCached_Invalidate(t *testing.T) {
	d, backing := newCachedDirectory(cache.Policy{DefaultTTL: time.Minute})
	ctx := context.Background()

	_, _ = d.Lookup(ctx, "alice")
	if err := d.Invalidate(ctx, "alice"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	_, _ = d.Lookup(ctx, "alice")

	if n := backing.calls.Load(); n != 2 {
		t.Errorf("backing lookups = %d, want 2", n)
	}
}

func TestCached_Disabled(t *testing.T) {
	d, backing := newCachedDirectory(cache.NoCachePolicy())
	ctx := context.Background()

	_, _ = d.Lookup(ctx, "alice")
	_, _ = d.Lookup(ctx, "alice")

	if n := backing.calls.Load(); n != 2 {
		t.Errorf("backing lookups = %d, want 2 with caching disabled", n)
	}
}

func TestCached_ReturnsIndependentCopies(t *testing.T) {
	d, _ := newCachedDirectory(cache.Policy{DefaultTTL: time.Minute})
	ctx := context.Background()

	first, _ := d.Lookup(ctx, "alice")
	first.Attributes["roles"] = "nobody"

	second, _ := d.Lookup(ctx, "alice")
	if second.Attributes["roles"] != "admin" {
		t.Errorf("roles = %q, cached record was mutated", second.Attributes["roles"])
	}
}
