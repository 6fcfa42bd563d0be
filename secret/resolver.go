package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// RefPrefix introduces a secret reference.
const RefPrefix = "secretref:"

// Resolver resolves secret references using registered providers.
//
// Values with the prefix "secretref:" are resolved via providers.
// Other values are returned after strict environment expansion.
type Resolver struct {
	mu        sync.RWMutex
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. A strict resolver rejects empty values.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register registers a provider with the resolver, replacing any provider
// with the same name.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	r.mu.Lock()
	r.providers[provider.Name()] = provider
	r.mu.Unlock()
}

// ResolveValue expands ${VAR} references, then resolves either a whole
// value "secretref:<provider>:<ref>" or every inline reference within it.
// A nil resolver only expands the environment.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	var out string
	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		out, err = r.resolveSingle(ctx, providerName, ref)
	} else if strings.HasPrefix(expanded, RefPrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, redactRef(expanded))
	} else {
		out, err = r.resolveInline(ctx, expanded)
	}
	if err != nil {
		return "", err
	}
	if r.strict && out == "" {
		return "", ErrEmptySecret
	}
	return out, nil
}

// Close closes every registered provider.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, RefPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

// FileRef reports the path of a "secretref:file:<path>" value.
func FileRef(value string) (string, bool) {
	provider, ref, ok := ParseSecretRef(value)
	if !ok || provider != "file" {
		return "", false
	}
	return ref, true
}

func (r *Resolver) resolveSingle(ctx context.Context, providerName string, ref string) (string, error) {
	r.mu.RLock()
	provider, ok := r.providers[providerName]
	r.mu.RUnlock()
	if !ok || provider == nil {
		return "", fmt.Errorf("%w: %q", ErrProviderNotFound, providerName)
	}

	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("%w: provider %q", ErrEmptySecret, providerName)
	}
	return resolved, nil
}

var inlineSecretRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	// Replace from the end so earlier indexes stay valid.
	out := value
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.resolveSingle(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}

// redactRef keeps only the provider part of a malformed reference.
func redactRef(value string) string {
	provider, _, found := strings.Cut(strings.TrimPrefix(value, RefPrefix), ":")
	if !found {
		return RefPrefix + "…"
	}
	return RefPrefix + provider + ":…"
}
