package auth

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchKeyFile_RotatesOnReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.key")
	if err := os.WriteFile(path, testSecret, 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys, err := LoadRotatingKey(ctx, func(context.Context) ([]byte, error) {
		return os.ReadFile(path)
	})
	if err != nil {
		t.Fatalf("LoadRotatingKey() error = %v", err)
	}

	if err := WatchKeyFile(ctx, path, keys, func(err error) { t.Logf("watch error: %v", err) }); err != nil {
		t.Fatalf("WatchKeyFile() error = %v", err)
	}

	staged := path + ".tmp"
	if err := os.WriteFile(staged, otherSecret, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(staged, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if bytes.Equal(keys.Key(), otherSecret) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("key not rotated after file change; rotations = %d", keys.Rotations())
}

// TestWatchKeyFile_RotatesOnDataLinkSwap mimics a Kubernetes secret volume:
// the key is reached through ..data, and an update swaps that link without
// any event naming the key file.
func TestWatchKeyFile_RotatesOnDataLinkSwap(t *testing.T) {
	dir := t.TempDir()
	writeRevision := func(rev string, key []byte) {
		t.Helper()
		if err := os.Mkdir(filepath.Join(dir, rev), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, rev, "signing.key"), key, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	writeRevision("..rev1", testSecret)
	if err := os.Symlink("..rev1", filepath.Join(dir, "..data")); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "signing.key")
	if err := os.Symlink(filepath.Join("..data", "signing.key"), path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys, err := LoadRotatingKey(ctx, func(context.Context) ([]byte, error) {
		return os.ReadFile(path)
	})
	if err != nil {
		t.Fatalf("LoadRotatingKey() error = %v", err)
	}
	if err := WatchKeyFile(ctx, path, keys, func(err error) { t.Logf("watch error: %v", err) }); err != nil {
		t.Fatalf("WatchKeyFile() error = %v", err)
	}

	writeRevision("..rev2", otherSecret)
	tmp := filepath.Join(dir, "..data_tmp")
	if err := os.Symlink("..rev2", tmp); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, "..data")); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if bytes.Equal(keys.Key(), otherSecret) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("key not rotated after ..data swap; rotations = %d", keys.Rotations())
}

func TestWatchKeyFile_Errors(t *testing.T) {
	ctx := context.Background()

	if err := WatchKeyFile(ctx, "key", nil, nil); !errors.Is(err, ErrKeyMissing) {
		t.Errorf("WatchKeyFile(nil keys) error = %v, want ErrKeyMissing", err)
	}

	keys, err := LoadRotatingKey(ctx, func(context.Context) ([]byte, error) { return testSecret, nil })
	if err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "no-such-dir", "signing.key")
	if err := WatchKeyFile(ctx, missing, keys, nil); err == nil {
		t.Error("WatchKeyFile() on missing directory expected error")
	}
}
