package source

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/okian/vor/internal/domain/dataset"
	"github.com/okian/vor/internal/domain/normalize"
)

var _ dataset.Source = (*GCS)(nil)

// GCS reads a CSV object from a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	object string
}

// NewGCS creates a storage client. credentialsFile may be empty to use
// application default credentials.
func NewGCS(ctx context.Context, bucket, object, credentialsFile string) (*GCS, error) {
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("gcs bucket and object: %w", ErrNoLocation)
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadOnly)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return NewGCSWithClient(client, bucket, object), nil
}

// NewGCSWithClient wraps an existing storage client.
func NewGCSWithClient(client *storage.Client, bucket, object string) *GCS {
	return &GCS{client: client, bucket: bucket, object: object}
}

// Name implements dataset.Source.
func (g *GCS) Name() string { return "gs://" + g.bucket + "/" + g.object }

// Load implements dataset.Source.
func (g *GCS) Load(ctx context.Context) (normalize.Table, error) {
	r, err := g.client.Bucket(g.bucket).Object(g.object).NewReader(ctx)
	if err != nil {
		return normalize.Table{}, fmt.Errorf("open %s: %w", g.Name(), err)
	}
	defer r.Close()
	return ReadCSV(r)
}

// Close releases the storage client.
func (g *GCS) Close() error { return g.client.Close() }
