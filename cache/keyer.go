package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultKeyPrefix prefixes every key produced by DefaultKeyer.
const DefaultKeyPrefix = "opsgate"

// Keyer derives deterministic cache keys for a query.
//
// Contract:
// - Determinism: same inputs produce the same key, regardless of map order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a key from a query name, the caller's scope and the
	// query parameters.
	Key(query, scope string, params any) (string, error)
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct {
	prefix string
}

// NewDefaultKeyer creates a keyer using DefaultKeyPrefix.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{prefix: DefaultKeyPrefix}
}

// NewPrefixedKeyer creates a keyer with a custom prefix, e.g. to share a
// Redis database between deployments.
func NewPrefixedKeyer(prefix string) *DefaultKeyer {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &DefaultKeyer{prefix: prefix}
}

// Key generates a deterministic cache key.
// Format: <prefix>:<query>:<scope>:<hash>
// where hash is the first 16 hex characters of SHA-256(JSON(params)).
// An empty scope is written as "*".
func (k *DefaultKeyer) Key(query, scope string, params any) (string, error) {
	if query == "" || strings.ContainsAny(query, ":\n\r") {
		return "", fmt.Errorf("%w: query %q", ErrInvalidKey, query)
	}
	if strings.ContainsAny(scope, ":\n\r") {
		return "", fmt.Errorf("%w: scope %q", ErrInvalidKey, scope)
	}
	if scope == "" {
		scope = "*"
	}

	// encoding/json writes map keys in sorted order.
	canonical, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("cache: failed to encode params: %w", err)
	}
	sum := sha256.Sum256(canonical)

	key := fmt.Sprintf("%s:%s:%s:%s", k.prefix, query, scope, hex.EncodeToString(sum[:8]))
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

var _ Keyer = (*DefaultKeyer)(nil)
