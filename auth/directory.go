package auth

import (
	"context"
	"sync"
)

// Directory looks up accounts by identifier.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Lookup may block on I/O and must honor cancellation/deadlines.
// - Matching: identifiers match exactly, with no case folding or trimming.
//   Callers that need case-insensitive lookup normalize before calling.
// - Errors: a missing account is reported as ErrAccountNotFound (possibly
//   wrapped); any other error is an infrastructure failure.
// - Ownership: the returned Account must not alias directory state.
type Directory interface {
	Lookup(ctx context.Context, id string) (*Account, error)
}

// DirectoryFunc is an adapter to allow use of ordinary functions as Directories.
type DirectoryFunc func(ctx context.Context, id string) (*Account, error)

// Lookup calls the function.
func (f DirectoryFunc) Lookup(ctx context.Context, id string) (*Account, error) {
	return f(ctx, id)
}

// MemoryDirectory is an in-memory Directory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryDirectory creates a directory seeded with accounts.
func NewMemoryDirectory(accounts ...*Account) *MemoryDirectory {
	d := &MemoryDirectory{accounts: make(map[string]*Account, len(accounts))}
	for _, a := range accounts {
		d.accounts[a.ID] = a.Clone()
	}
	return d
}

// Lookup retrieves an account by exact identifier.
func (d *MemoryDirectory) Lookup(ctx context.Context, id string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a.Clone(), nil
}

// Put adds or replaces an account.
func (d *MemoryDirectory) Put(a *Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[a.ID] = a.Clone()
}

// Remove deletes an account. Removing an unknown identifier is a no-op.
func (d *MemoryDirectory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.accounts, id)
}

// SetActive flips the active flag of an existing account.
func (d *MemoryDirectory) SetActive(id string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.Active = active
	return nil
}

// Len returns the number of stored accounts.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.accounts)
}

// Ensure MemoryDirectory implements Directory
var _ Directory = (*MemoryDirectory)(nil)
