package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned when an object does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ObjectStorage defines the operations an image store supports.
// Keys are bare file names; implementations apply their own directory or prefix.
type ObjectStorage interface {
	// Upload writes an object, replacing any existing object with the same key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens an object for reading. Returns ErrNotFound if missing.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object. Returns ErrNotFound if missing.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys of all objects in the store
	List(ctx context.Context) ([]string, error)
}

// BucketEnsurer is implemented by remote stores that can create their bucket on startup.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

// ValidateKey rejects keys that could escape the store's directory or prefix.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("invalid object key %q", key)
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
