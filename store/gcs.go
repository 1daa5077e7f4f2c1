package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSMirror uploads session log snapshots to a Google Cloud Storage
// bucket.
type GCSMirror struct {
	bucket string
	client *storage.Client
}

// NewGCSMirror connects to GCS. credentialsPath may be empty, in which
// case application default credentials are used.
func NewGCSMirror(ctx context.Context, bucket, credentialsPath string) (*GCSMirror, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error connecting to GCS: %w", err)
	}

	return &GCSMirror{
		bucket: bucket,
		client: client,
	}, nil
}

func (g *GCSMirror) Upload(ctx context.Context, objectName string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("error uploading %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("error finalizing upload of %s: %w", objectName, err)
	}
	return nil
}

func (g *GCSMirror) Close() error {
	return g.client.Close()
}
