package directory

import (
	"context"
	"sync/atomic"

	"github.com/jonwraymond/tokenauth/auth"
)

// countingDirectory counts lookups and returns scripted errors first.
type countingDirectory struct {
	next  auth.Directory
	errs  []error
	calls atomic.Int32
}

func (d *countingDirectory) Lookup(ctx context.Context, id string) (*auth.Account, error) {
	n := int(d.calls.Add(1))
	if n <= len(d.errs) && d.errs[n-1] != nil {
		return nil, d.errs[n-1]
	}
	return d.next.Lookup(ctx, id)
}

func testAccount() *auth.Account {
	return &auth.Account{
		ID:           "alice",
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuu5kC0Yz3WpIuM5r9XQ0x1mZl1kQ9nYyS",
		Active:       true,
		Attributes:   map[string]string{"roles": "admin", "tenant": "acme"},
	}
}
