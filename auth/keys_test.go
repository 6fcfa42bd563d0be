package auth

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		secret  []byte
		wantErr error
	}{
		{"nil", nil, ErrKeyMissing},
		{"short", []byte("0123456789"), ErrKeyTooShort},
		{"minimum", bytes.Repeat([]byte("k"), MinKeyLength), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.secret); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewStaticKey_Copies(t *testing.T) {
	secret := append([]byte(nil), testSecret...)
	key, err := NewStaticKey(secret)
	if err != nil {
		t.Fatalf("NewStaticKey() error = %v", err)
	}
	secret[0] = 'X'
	if !bytes.Equal(key.Key(), testSecret) {
		t.Error("StaticKey shares memory with caller's slice")
	}
}

func TestLoadRotatingKey(t *testing.T) {
	ctx := context.Background()

	if _, err := LoadRotatingKey(ctx, nil); !errors.Is(err, ErrKeyMissing) {
		t.Errorf("LoadRotatingKey(nil) error = %v, want ErrKeyMissing", err)
	}

	failing := func(context.Context) ([]byte, error) { return nil, errors.New("vault sealed") }
	if _, err := LoadRotatingKey(ctx, failing); err == nil {
		t.Error("LoadRotatingKey() with failing loader expected error")
	}

	short := func(context.Context) ([]byte, error) { return []byte("short"), nil }
	if _, err := LoadRotatingKey(ctx, short); !errors.Is(err, ErrKeyTooShort) {
		t.Errorf("LoadRotatingKey() with short key error = %v, want ErrKeyTooShort", err)
	}
}

func TestRotatingKey_Rotate(t *testing.T) {
	ctx := context.Background()

	var current atomic.Value
	current.Store(testSecret)
	var fail atomic.Bool
	load := func(context.Context) ([]byte, error) {
		if fail.Load() {
			return nil, errors.New("unavailable")
		}
		return current.Load().([]byte), nil
	}

	keys, err := LoadRotatingKey(ctx, load)
	if err != nil {
		t.Fatalf("LoadRotatingKey() error = %v", err)
	}
	if !bytes.Equal(keys.Key(), testSecret) {
		t.Fatal("initial key mismatch")
	}
	if keys.LoadedAt().IsZero() {
		t.Error("LoadedAt() is zero after load")
	}

	v, err := NewVerifier(VerifierConfig{Now: fixedClock(testNow)}, keys)
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	oldToken := signClaims(t, jwt.SigningMethodHS256, testSecret, validClaims())
	if _, err := v.Verify(oldToken); err != nil {
		t.Fatalf("Verify() before rotation error = %v", err)
	}

	current.Store(otherSecret)
	if err := keys.Rotate(ctx); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if keys.Rotations() != 1 {
		t.Errorf("Rotations() = %d, want 1", keys.Rotations())
	}
	if _, err := v.Verify(oldToken); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Verify() old token after rotation error = %v, want ErrSignatureInvalid", err)
	}
	newToken := signClaims(t, jwt.SigningMethodHS256, otherSecret, validClaims())
	if _, err := v.Verify(newToken); err != nil {
		t.Errorf("Verify() new token error = %v", err)
	}

	fail.Store(true)
	if err := keys.Rotate(ctx); err == nil {
		t.Error("Rotate() with failing loader expected error")
	}
	if !bytes.Equal(keys.Key(), otherSecret) {
		t.Error("failed rotation replaced the active key")
	}
	if keys.Rotations() != 1 {
		t.Errorf("Rotations() = %d after failure, want 1", keys.Rotations())
	}
}

func TestRotatingKey_ConcurrentRotateSharesLoad(t *testing.T) {
	ctx := context.Background()

	var loads atomic.Int32
	release := make(chan struct{})
	first := true
	var mu sync.Mutex
	load := func(context.Context) ([]byte, error) {
		mu.Lock()
		initial := first
		first = false
		mu.Unlock()
		if !initial {
			loads.Add(1)
			<-release
		}
		return testSecret, nil
	}

	keys, err := LoadRotatingKey(ctx, load)
	if err != nil {
		t.Fatalf("LoadRotatingKey() error = %v", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = keys.Rotate(ctx)
		}()
	}

	deadline := time.Now().Add(time.Second)
	for loads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := loads.Load(); got < 1 || got > 8 {
		t.Fatalf("loads = %d, want between 1 and 8", got)
	}
	if got := keys.Rotations(); int32(got) != loads.Load() {
		t.Errorf("Rotations() = %d, want %d (one per shared load)", got, loads.Load())
	}
}
