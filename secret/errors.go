package secret

import "errors"

// Sentinel errors for secret resolution.
var (
	ErrInvalidProvider  = errors.New("secret: invalid provider registration")
	ErrProviderExists   = errors.New("secret: provider already registered")
	ErrProviderNotFound = errors.New("secret: provider is not registered")
	ErrMissingEnv       = errors.New("secret: missing required environment variables")
	ErrSecretNotFound   = errors.New("secret: secret not found")
	ErrEmptySecret      = errors.New("secret: provider returned empty value")
	ErrInvalidRef       = errors.New("secret: invalid secret reference")
)
