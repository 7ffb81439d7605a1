// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver identifies a concrete storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"       // local directory (default)
	DriverMemory     Driver = "memory"   // in-process map (tests, dry runs)
	DriverSQLite     Driver = "sqlite"   // single-file SQLite database
	DriverPostgres   Driver = "postgres" // shared PostgreSQL database
	DriverS3         Driver = "s3"       // S3 / MinIO compatible bucket
)

var (
	// ErrNotFound is returned by Get when no blob exists under the key.
	ErrNotFound = errors.New("storage: blob not found")
	// ErrExists is returned by Put without overwrite when the key is taken.
	ErrExists = errors.New("storage: blob already exists")
)

// Backend is the interface all table storage implementations must satisfy.
// Blobs are opaque and addressed by a flat string key. Put must be atomic:
// a concurrent reader sees either the previous blob or the complete new one.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key. Without overwrite it fails with ErrExists
	// when the key is already present; the existing blob is left intact.
	Put(ctx context.Context, key string, data []byte, overwrite bool) error
	// Delete removes a blob. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns all keys in ascending order.
	List(ctx context.Context) ([]string, error)

	Driver() Driver
}

// ValidateKey rejects keys that could escape a directory root or collide with
// temp files.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("storage: empty key")
	case strings.Contains(key, ".."):
		return fmt.Errorf("storage: invalid key %q contains '..'", key)
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("storage: invalid key %q contains a path separator", key)
	case strings.HasPrefix(key, "."):
		return fmt.Errorf("storage: invalid key %q starts with '.'", key)
	}
	return nil
}
