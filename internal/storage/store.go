// Package storage persists pipeline media under per-project key prefixes.
package storage

import (
	"context"
	"errors"
)

var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStore is the object-storage surface the pipeline and API use.
// Keys are slash separated and relative to the store root.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PutFile(ctx context.Context, key, localPath, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	URL(key string) string
}

// DeletePrefix removes every object under prefix and reports how many went.
func DeletePrefix(ctx context.Context, store ObjectStore, prefix string) (int, error) {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
