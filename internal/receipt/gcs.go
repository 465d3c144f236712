package receipt

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// GCSStore writes receipts to a Google Cloud Storage bucket using
// application default credentials.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gcs object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gcs object %s: %w", key, err)
	}
	return gcsScheme + g.bucket + "/" + key, nil
}

func (g *GCSStore) Exists(ctx context.Context, ref string) (bool, error) {
	key, ok := objectKey(ref, gcsScheme, g.bucket)
	if !ok {
		return false, nil
	}
	if _, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat gcs object %s: %w", key, err)
	}
	return true, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
