package directory

import (
	"context"
	"errors"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/resilience"
)

// Resilient runs lookups through a resilience.Executor. A missing account is
// an answer rather than a failure: it is neither retried nor counted by a
// circuit breaker.
type Resilient struct {
	next auth.Directory
	exec *resilience.Executor
}

// NewResilient wraps next. A nil executor passes lookups straight through.
func NewResilient(next auth.Directory, exec *resilience.Executor) *Resilient {
	return &Resilient{next: next, exec: exec}
}

// Lookup delegates to the wrapped directory under the executor.
func (d *Resilient) Lookup(ctx context.Context, id string) (*auth.Account, error) {
	return resilience.Do(ctx, d.exec, func(ctx context.Context) (*auth.Account, error) {
		acct, err := d.next.Lookup(ctx, id)
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil, resilience.Permanent(err)
		}
		return acct, err
	})
}

// Ensure Resilient implements auth.Directory
var _ auth.Directory = (*Resilient)(nil)
