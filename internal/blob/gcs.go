package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig configures a GCS source.
type GCSConfig struct {
	Bucket string

	// CredentialsFile is a service account key file. When empty and
	// CredentialsJSON is empty, Application Default Credentials are used.
	CredentialsFile string
	CredentialsJSON []byte

	// Options are appended to the client options (endpoint overrides in
	// tests, for example).
	Options []option.ClientOption
}

// GCS serves artifacts from a Cloud Storage bucket. Locations are object
// names.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCS creates a storage client for cfg.Bucket.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("blob: gcs bucket is required")
	}

	opts := append([]option.ClientOption{}, cfg.Options...)
	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: gcs client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

// Name returns "gcs".
func (g *GCS) Name() string { return "gcs" }

// Stat fetches object attributes.
func (g *GCS) Stat(ctx context.Context, location string) (Info, error) {
	loc, err := cleanLocation(location)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %q", err, location)
	}
	attrs, err := g.bucket.Object(loc).Attrs(ctx)
	if err != nil {
		return Info{}, mapGCSErr(location, err)
	}
	ct := attrs.ContentType
	if ct == "" {
		ct = contentType(loc)
	}
	return Info{
		Location:    location,
		Size:        attrs.Size,
		ModTime:     attrs.Updated,
		ContentType: ct,
	}, nil
}

// Open starts reading the object. The reader is bound to ctx.
func (g *GCS) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	loc, err := cleanLocation(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, location)
	}
	r, err := g.bucket.Object(loc).NewReader(ctx)
	if err != nil {
		return nil, mapGCSErr(location, err)
	}
	return r, nil
}

// Close closes the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func mapGCSErr(location string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return fmt.Errorf("blob: gcs %s: %w", location, err)
}

var _ Source = (*GCS)(nil)
