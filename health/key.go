package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/opsgate/auth"
)

// rotationInfo is implemented by key sources that reload at runtime.
type rotationInfo interface {
	LoadedAt() time.Time
	Rotations() int64
}

// KeyChecker reports whether the token signing key is loaded and usable.
type KeyChecker struct {
	keys auth.KeySource
}

// NewKeyChecker creates a checker for keys.
func NewKeyChecker(keys auth.KeySource) *KeyChecker {
	return &KeyChecker{keys: keys}
}

// Name returns "signing_key".
func (k *KeyChecker) Name() string {
	return "signing_key"
}

// Check validates the active key. The key itself is never reported.
func (k *KeyChecker) Check(_ context.Context) Result {
	if k.keys == nil {
		return Unhealthy("no key source configured", ErrKeyUnavailable)
	}
	if err := auth.ValidateKey(k.keys.Key()); err != nil {
		return Unhealthy("signing key invalid", fmt.Errorf("%w: %w", ErrKeyUnavailable, err))
	}

	details := map[string]any{"algorithm": auth.SigningMethod.Alg()}
	if ri, ok := k.keys.(rotationInfo); ok {
		details["loaded_at"] = ri.LoadedAt().UTC().Format(time.RFC3339)
		details["rotations"] = ri.Rotations()
	}
	return Healthy("signing key loaded").WithDetails(details)
}

// Ensure KeyChecker implements Checker
var _ Checker = (*KeyChecker)(nil)
