package auth

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// dataLink is the symlink Kubernetes secret and configmap volumes swap to
// publish a new revision; the key file itself is a link through it.
const dataLink = "..data"

// WatchKeyFile rotates keys whenever the file at path is written, created
// or replaced. The parent directory is watched, so a rename onto path and a
// swap of the directory's ..data link both trigger a reload. Other mounts
// that change the file without an event in its directory need SIGHUP.
// onErr receives rotation and watcher errors.
//
// The watcher runs until ctx is done. Setup errors are returned directly.
func WatchKeyFile(ctx context.Context, path string, keys *RotatingKey, onErr func(error)) error {
	if keys == nil {
		return fmt.Errorf("%w: no rotating key to refresh", ErrKeyMissing)
	}
	if onErr == nil {
		onErr = func(error) {}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve key file: %w", err)
	}

	dir := filepath.Dir(abs)
	link := filepath.Join(dir, dataLink)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create key watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch key dir: %w", err)
	}

	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if name := filepath.Clean(ev.Name); name != abs && name != link {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if err := keys.Rotate(ctx); err != nil {
					onErr(err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				onErr(err)
			}
		}
	}()
	return nil
}
