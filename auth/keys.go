package auth

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// MinKeyLength is the minimum HMAC secret length in bytes.
const MinKeyLength = 32

// KeySource provides the HMAC secret used to verify tokens.
//
// Contract:
// - Concurrency: Key must be safe for concurrent use by many requests.
// - Ownership: the returned slice must not be modified by callers.
type KeySource interface {
	Key() []byte
}

// StaticKey is a KeySource fixed for the process lifetime.
type StaticKey []byte

// NewStaticKey validates secret and returns it as a KeySource.
func NewStaticKey(secret []byte) (StaticKey, error) {
	if err := ValidateKey(secret); err != nil {
		return nil, err
	}
	return StaticKey(append([]byte(nil), secret...)), nil
}

// Key returns the static secret.
func (k StaticKey) Key() []byte {
	return k
}

// ValidateKey checks that secret is usable as a signing key.
func ValidateKey(secret []byte) error {
	if len(secret) == 0 {
		return ErrKeyMissing
	}
	if len(secret) < MinKeyLength {
		return fmt.Errorf("%w: got %d bytes, need %d", ErrKeyTooShort, len(secret), MinKeyLength)
	}
	return nil
}

// KeyLoader fetches the current secret, e.g. from a secret store.
type KeyLoader func(ctx context.Context) ([]byte, error)

// RotatingKey caches a loaded secret process-wide and replaces it only on
// an explicit Rotate call. A failed rotation keeps the previous key.
type RotatingKey struct {
	load      KeyLoader
	current   atomic.Pointer[[]byte]
	loadedAt  atomic.Int64
	rotations atomic.Int64
	sfGroup   singleflight.Group
}

// LoadRotatingKey performs the initial load. An error here is fatal for
// callers: a server must not start without a usable key.
func LoadRotatingKey(ctx context.Context, load KeyLoader) (*RotatingKey, error) {
	if load == nil {
		return nil, fmt.Errorf("%w: no loader configured", ErrKeyMissing)
	}
	k := &RotatingKey{load: load}
	if err := k.store(ctx); err != nil {
		return nil, err
	}
	return k, nil
}

// Key returns the currently active secret.
func (k *RotatingKey) Key() []byte {
	p := k.current.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Rotate reloads the secret. Concurrent calls share a single load.
func (k *RotatingKey) Rotate(ctx context.Context) error {
	_, err, _ := k.sfGroup.Do("rotate", func() (any, error) {
		if err := k.store(ctx); err != nil {
			return nil, err
		}
		k.rotations.Add(1)
		return nil, nil
	})
	return err
}

// LoadedAt returns when the active key was loaded.
func (k *RotatingKey) LoadedAt() time.Time {
	return time.Unix(0, k.loadedAt.Load())
}

// Rotations returns how many successful rotations have happened.
func (k *RotatingKey) Rotations() int64 {
	return k.rotations.Load()
}

func (k *RotatingKey) store(ctx context.Context) error {
	secret, err := k.load(ctx)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}
	if err := ValidateKey(secret); err != nil {
		return err
	}
	cp := append([]byte(nil), secret...)
	k.current.Store(&cp)
	k.loadedAt.Store(time.Now().UnixNano())
	return nil
}

// Ensure StaticKey implements KeySource
var _ KeySource = StaticKey(nil)

// Ensure RotatingKey implements KeySource
var _ KeySource = (*RotatingKey)(nil)
