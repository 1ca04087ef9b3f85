package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: messages may name the reference but never the secret value.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves refs as environment variable names.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider backed by os.LookupEnv.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the variable's value, or an error if it is unset.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %q not set", ErrSecretNotFound, ref)
	}
	return v, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves refs as file paths, optionally under a base
// directory.
type FileProvider struct {
	base string
}

// NewFileProvider creates a file provider. A non-empty base restricts refs
// to files below it.
func NewFileProvider(base string) *FileProvider {
	return &FileProvider{base: base}
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the file and trims trailing newlines.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if p.base != "" {
		root, err := os.OpenRoot(p.base)
		if err != nil {
			return "", fmt.Errorf("secret: open %q: %w", p.base, err)
		}
		defer func() { _ = root.Close() }()

		data, err := root.ReadFile(strings.TrimPrefix(ref, "/"))
		if err != nil {
			return "", fmt.Errorf("%w: file %q: %v", ErrSecretNotFound, ref, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: file %q: %v", ErrSecretNotFound, ref, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// Close is a no-op.
func (p *FileProvider) Close() error { return nil }

// Ensure providers implement Provider
var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
