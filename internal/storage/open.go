package storage

import (
	"context"
	"fmt"
	"path/filepath"

	gcs "cloud.google.com/go/storage"

	"genads/internal/infra"
)

// Open builds the store selected by STORAGE_DRIVER. The returned close func
// releases the GCS client and is a no-op for the filesystem.
func Open(ctx context.Context, cfg *infra.Config) (ObjectStore, func() error, error) {
	switch cfg.StorageDriver {
	case infra.StorageDriverGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: gcs client: %w", err)
		}
		store, err := NewGCSStore(client, cfg.GCSBucket, cfg.StorageBaseURL)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	default:
		path, err := LocalPath(cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewFileStore(path, cfg.StorageBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	}
}

// LocalPath resolves STORAGE_PATH to an absolute directory.
func LocalPath(cfg *infra.Config) (string, error) {
	storagePath := cfg.StoragePath
	if storagePath == "" {
		storagePath = "./storage"
	}
	if filepath.IsAbs(storagePath) {
		return storagePath, nil
	}
	abs, err := filepath.Abs(storagePath)
	if err != nil {
		return "", fmt.Errorf("storage: resolve %s: %w", storagePath, err)
	}
	return abs, nil
}
