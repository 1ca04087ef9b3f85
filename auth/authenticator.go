package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/tokenauth/observe"
)

// Authenticator checks an identifier and secret against a Directory.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: unknown identifiers and wrong secrets both return exactly
//     ErrInvalidCredentials; directory or hasher infrastructure failures
//     are returned wrapped and classify as internal.
//   - Account activity is not checked; see AccountActive.
type Authenticator struct {
	directory Directory
	hasher    PasswordHasher
	dummy     string
	opts      options
}

// dummyHasher is implemented by hashers that can supply a hash for the
// unknown-identifier path.
type dummyHasher interface {
	DummyHash() string
}

// NewAuthenticator creates an Authenticator. directory and hasher are required.
func NewAuthenticator(directory Directory, hasher PasswordHasher, opts ...Option) *Authenticator {
	if directory == nil || hasher == nil {
		panic("auth: NewAuthenticator requires a directory and a hasher")
	}

	a := &Authenticator{
		directory: directory,
		hasher:    hasher,
		opts:      buildOptions(opts),
	}
	if d, ok := hasher.(dummyHasher); ok {
		a.dummy = d.DummyHash()
	} else if h, err := hasher.Hash("tokenauth-unknown-account"); err == nil {
		a.dummy = h
	} else {
		a.dummy = fallbackDummyHash
	}
	return a
}

// Authenticate returns the account for id when secret matches its hash.
func (a *Authenticator) Authenticate(ctx context.Context, id, secret string) (*Account, error) {
	return runStage(ctx, a.opts.middleware, observe.StageMeta{Name: StageAuthenticate}, func(ctx context.Context) (*Account, error) {
		return a.authenticate(ctx, id, secret)
	})
}

func (a *Authenticator) authenticate(ctx context.Context, id, secret string) (*Account, error) {
	acct, err := a.directory.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("auth: lookup account: %w", err)
		}
		// Unknown identifiers pay for a verification too.
		if _, err := a.verify(ctx, secret, a.dummy); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	ok, err := a.verify(ctx, secret, acct.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

func (a *Authenticator) verify(ctx context.Context, secret, hash string) (bool, error) {
	if a.opts.bulkhead == nil {
		return a.hasher.Verify(secret, hash), nil
	}

	var ok bool
	err := a.opts.bulkhead.Execute(ctx, func(context.Context) error {
		ok = a.hasher.Verify(secret, hash)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("auth: verify secret: %w", err)
	}
	return ok, nil
}

// Login authenticates id and secret and issues a token for the account.
// Issuance is reported as its own stage through authn's middleware.
func Login(ctx context.Context, authn *Authenticator, codec *TokenCodec, id, secret string) (*Token, error) {
	acct, err := authn.Authenticate(ctx, id, secret)
	if err != nil {
		return nil, err
	}
	return runStage(ctx, authn.opts.middleware, observe.StageMeta{Name: StageIssue}, func(context.Context) (*Token, error) {
		return codec.Issue(acct.ID, 0)
	})
}
