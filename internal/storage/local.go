package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/afero"
)

// LocalStorage implements ObjectStorage on a directory, local or network-mounted.
type LocalStorage struct {
	fs afero.Fs
}

// NewLocalStorage creates the directory if needed and roots a store at it.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return NewLocalStorageFs(afero.NewBasePathFs(osFs, dir)), nil
}

// NewLocalStorageFs wraps an existing filesystem, e.g. afero.NewMemMapFs in tests.
func NewLocalStorageFs(fs afero.Fs) *LocalStorage {
	return &LocalStorage{fs: fs}
}

// Upload writes the object to disk
func (s *LocalStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := afero.WriteReader(s.fs, objectPath(key), reader); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Download opens the file for reading
func (s *LocalStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	f, err := s.fs.Open(objectPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes the file
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.fs.Remove(objectPath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Exists checks if the file exists
func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	return afero.Exists(s.fs, objectPath(key))
}

// List returns regular file names in the directory, sorted
func (s *LocalStorage) List(_ context.Context) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// objectPath roots key at the store directory
func objectPath(key string) string {
	return "/" + key
}
