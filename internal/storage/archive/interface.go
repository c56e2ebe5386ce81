// internal/storage/archive/interface.go
package archive

import (
	"context"
	"fmt"
)

// Storage defines the interface for the object stores holding bar files and
// result artifacts. Read of a missing path fails with core.ErrStorageNotFound.
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Storage backend types
const (
	TypeLocalFS = "localfs"
	TypeS3      = "s3"
)

// Config selects and configures a storage backend
type Config struct {
	Type string
	Path string // base directory for localfs
	S3   S3Config
}

// New creates the storage backend named by cfg.Type. An empty type means localfs.
func New(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", TypeLocalFS:
		path := cfg.Path
		if path == "" {
			path = "."
		}
		return NewLocalFS(path)
	case TypeS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 storage: bucket is required")
		}
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
