// Package storage persists per-user blobs: uploaded lead files and
// cached insight results. Keys are slash-separated paths scoped by the
// caller (e.g. "uploads/<user>/<file>"). Local disk serves development
// and single-node deployments; S3 serves everything else.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/naybourhood/naybourhood-server/internal/config"
)

// ErrNotFound means no object exists at the key.
var ErrNotFound = errors.New("storage: object not found")

// Store is the blob persistence contract.
type Store interface {
	// Put writes the object, replacing any existing one.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the object's bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// New builds the store selected by config.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.LocalPath)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// validKey rejects empty keys and path escapes before they reach a
// backend.
func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("storage: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}
