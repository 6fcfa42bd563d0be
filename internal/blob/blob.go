// Package blob reads backup artifacts from a filesystem directory or a
// Google Cloud Storage bucket.
package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"time"
)

// Sentinel errors.
var (
	ErrNotFound        = errors.New("blob: object not found")
	ErrInvalidLocation = errors.New("blob: invalid location")
)

// Info describes a stored artifact.
type Info struct {
	Location    string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Source provides read access to artifacts by location.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: unknown locations return an error matching ErrNotFound;
// locations that are absolute or escape the source return ErrInvalidLocation.
// - Ownership: callers must Close the reader returned by Open.
type Source interface {
	// Name identifies the backend ("dir", "gcs").
	Name() string
	Stat(ctx context.Context, location string) (Info, error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Close() error
}

// cleanLocation validates a slash-separated location relative to the
// source root.
func cleanLocation(location string) (string, error) {
	loc := strings.TrimPrefix(location, "./")
	if loc == "" || !fs.ValidPath(loc) || loc == "." {
		return "", ErrInvalidLocation
	}
	return loc, nil
}
