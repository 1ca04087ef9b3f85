package directory

import (
	"context"
	"errors"

	"github.com/jonwraymond/tokenauth/auth"
)

// Chain consults directories in order and returns the first account found.
// Any error other than auth.ErrAccountNotFound stops the search.
type Chain struct {
	dirs []auth.Directory
}

// NewChain creates a chain. Nil directories are skipped.
func NewChain(dirs ...auth.Directory) *Chain {
	c := &Chain{dirs: make([]auth.Directory, 0, len(dirs))}
	for _, d := range dirs {
		if d != nil {
			c.dirs = append(c.dirs, d)
		}
	}
	return c
}

// Lookup returns the first hit.
func (c *Chain) Lookup(ctx context.Context, id string) (*auth.Account, error) {
	for _, d := range c.dirs {
		acct, err := d.Lookup(ctx, id)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, auth.ErrAccountNotFound) {
			return nil, err
		}
	}
	return nil, auth.ErrAccountNotFound
}

// Ensure Chain implements auth.Directory
var _ auth.Directory = (*Chain)(nil)
