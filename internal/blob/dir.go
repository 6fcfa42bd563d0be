package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
)

// Dir serves artifacts from a local directory. Lookups are confined to the
// directory with os.Root, so symlinks cannot escape it.
type Dir struct {
	root *os.Root
}

// OpenDir opens dir as an artifact source.
func OpenDir(dir string) (*Dir, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("blob: open dir %s: %w", dir, err)
	}
	return &Dir{root: root}, nil
}

// Name returns "dir".
func (d *Dir) Name() string { return "dir" }

// Stat returns the size and modification time of location.
func (d *Dir) Stat(ctx context.Context, location string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	loc, err := cleanLocation(location)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %q", err, location)
	}
	fi, err := d.root.Stat(loc)
	if err != nil {
		return Info{}, d.mapErr(location, err)
	}
	if fi.IsDir() {
		return Info{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, location)
	}
	return Info{
		Location:    location,
		Size:        fi.Size(),
		ModTime:     fi.ModTime(),
		ContentType: contentType(loc),
	}, nil
}

// Open returns a reader for location.
func (d *Dir) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc, err := cleanLocation(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, location)
	}
	f, err := d.root.Open(loc)
	if err != nil {
		return nil, d.mapErr(location, err)
	}
	return f, nil
}

// Close releases the directory handle.
func (d *Dir) Close() error {
	return d.root.Close()
}

func (d *Dir) mapErr(location string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return fmt.Errorf("blob: %s: %w", location, err)
}

func contentType(loc string) string {
	if ct := mime.TypeByExtension(path.Ext(loc)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var _ Source = (*Dir)(nil)
