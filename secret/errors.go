package secret

import "errors"

var (
	// ErrSecretNotFound indicates a provider had no value for a reference.
	ErrSecretNotFound = errors.New("secret: not found")

	// ErrUnknownProvider indicates a reference named an unregistered provider.
	ErrUnknownProvider = errors.New("secret: unknown provider")

	// ErrEmptySecret indicates a strict resolver got an empty value.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrMissingEnv indicates ${VAR} expansion named an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variables")
)
