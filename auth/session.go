package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/tokenauth/observe"
)

// RevocationList tracks token IDs that must no longer be accepted.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Revoke records id until the given time; entries past it may be dropped.
//   - Errors: IsRevoked errors are treated as infrastructure failures.
type RevocationList interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// MemoryRevocationList is an in-process RevocationList.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty revocation list. WithClock
// sets the clock entries expire against; other options are ignored.
func NewMemoryRevocationList(opts ...Option) *MemoryRevocationList {
	o := buildOptions(opts)
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     o.now,
	}
}

// Revoke marks id as revoked until the token would have expired anyway.
func (l *MemoryRevocationList) Revoke(_ context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("auth: revoke: empty token id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.entries {
		if !exp.After(now) {
			delete(l.entries, k)
		}
	}
	l.entries[id] = until
	return nil
}

// IsRevoked reports whether id is currently revoked.
func (l *MemoryRevocationList) IsRevoked(_ context.Context, id string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	until, ok := l.entries[id]
	return ok && until.After(l.now()), nil
}

// Len returns the number of tracked entries, including stale ones.
func (l *MemoryRevocationList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// SessionResolver turns a presented bearer token into a Session.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: token problems return *TokenError (ErrUnauthenticated);
//     directory failures other than not-found are returned wrapped and
//     classify as internal.
//   - Account activity is not checked here; see AccountActive.
type SessionResolver struct {
	codec     *TokenCodec
	directory Directory
	opts      options
}

// NewSessionResolver creates a resolver. codec and directory are required.
func NewSessionResolver(codec *TokenCodec, directory Directory, opts ...Option) *SessionResolver {
	if codec == nil || directory == nil {
		panic("auth: NewSessionResolver requires a codec and a directory")
	}
	return &SessionResolver{
		codec:     codec,
		directory: directory,
		opts:      buildOptions(opts),
	}
}

// Resolve verifies value and loads the account it names.
func (r *SessionResolver) Resolve(ctx context.Context, value string) (*Session, error) {
	return runStage(ctx, r.opts.middleware, observe.StageMeta{Name: StageResolve}, func(ctx context.Context) (*Session, error) {
		return r.resolve(ctx, value)
	})
}

func (r *SessionResolver) resolve(ctx context.Context, value string) (*Session, error) {
	tok, err := r.codec.Verify(value)
	if err != nil {
		return nil, err
	}

	if r.opts.revocations != nil && tok.ID != "" {
		revoked, err := r.opts.revocations.IsRevoked(ctx, tok.ID)
		if err != nil {
			return nil, fmt.Errorf("auth: check revocation: %w", err)
		}
		if revoked {
			return nil, tokenError(ReasonRevoked, nil)
		}
	}

	acct, err := r.directory.Lookup(ctx, tok.Subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, tokenError(ReasonUnknownSubject, err)
		}
		return nil, fmt.Errorf("auth: resolve subject: %w", err)
	}

	return &Session{Account: acct, Token: tok}, nil
}

// Revoke adds the session's token to the configured revocation list.
// It returns an error when no list is configured.
func (r *SessionResolver) Revoke(ctx context.Context, tok *Token) error {
	if r.opts.revocations == nil {
		return errors.New("auth: revoke: no revocation list configured")
	}
	if tok == nil {
		return errors.New("auth: revoke: nil token")
	}
	return r.opts.revocations.Revoke(ctx, tok.ID, tok.ExpiresAt)
}

// ExtractBearer returns the credential from an "Authorization: Bearer x"
// header value. The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, " \t") {
		return "", false
	}
	return value, true
}
