package storage

import (
	"fmt"
	"strings"
)

// Config selects and configures one image store.
type Config struct {
	Type StorageType
	// Dir is the directory used by local stores
	Dir string
	// S3 holds remote settings; its Prefix separates stores sharing a bucket
	S3 S3Config
}

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - cfg: store configuration.
//
// Returns:
//   - ObjectStorage: initialized storage implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *Config) (ObjectStorage, error) {
	storeType := cfg.Type
	if storeType == "" {
		storeType = detectStorageType(cfg.S3.Endpoint)
	}

	switch storeType {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.Dir)
	case StorageTypeMinIO:
		return NewMinIOStorage(&cfg.S3)
	case StorageTypeS3, StorageTypeR2, StorageTypeS3Compatible:
		s3cfg := cfg.S3
		s3cfg.Type = storeType
		return NewS3Storage(&s3cfg)
	default:
		return nil, fmt.Errorf("unknown storage type %q", storeType)
	}
}

// detectStorageType guesses the backend from the endpoint; no endpoint means a local directory
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case endpoint == "":
		return StorageTypeLocal
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
