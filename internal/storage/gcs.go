package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStore persists media in a Google Cloud Storage bucket.
type GCSStore struct {
	client  *gcs.Client
	bucket  string
	baseURL string
}

// NewGCSStore wraps an existing client. Public URLs default to the
// storage.googleapis.com endpoint for the bucket.
func NewGCSStore(client *gcs.Client, bucket, baseURL string) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("storage: gcs client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage: gcs bucket is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	w := s.client.Bucket(s.bucket).Object(cleanKey).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: gcs write %s: %w", cleanKey, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: gcs close %s: %w", cleanKey, err)
	}
	return cleanKey, nil
}

func (s *GCSStore) PutFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("storage: open source: %w", err)
	}
	defer src.Close()

	w := s.client.Bucket(s.bucket).Object(cleanKey).NewWriter(ctx)
	w.ContentType = contentType
	if written, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: gcs upload %s after %d bytes: %w", cleanKey, written, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: gcs close %s: %w", cleanKey, err)
	}
	return cleanKey, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(cleanKey).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: gcs read %s: %w", cleanKey, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(cleanKey).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	cleanPrefix, err := sanitizeKey(prefix)
	if err != nil {
		return nil, err
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcs.Query{Prefix: cleanPrefix + "/"})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: gcs list %s: %w", cleanPrefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *GCSStore) URL(key string) string {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return s.baseURL + "/" + cleanKey
}
