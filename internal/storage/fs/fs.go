// Package fsstorage implements storage.Backend on a local directory. Each blob
// is one file named after its key. Writes go to a temp file in the same
// directory, are fsynced, and are then moved into place, so a crash or a
// concurrent reader never observes a partial blob.
package fsstorage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/airshower/varbeam/internal/storage"
)

const tmpPrefix = ".tmp-"

// Config holds configuration for the filesystem backend.
type Config struct {
	Root string
}

// Backend stores blobs as files under Root.
type Backend struct {
	root string
}

// New creates a filesystem backend. Init creates the root directory.
func New(cfg Config) *Backend {
	root := cfg.Root
	if root == "" {
		root = "./tables"
	}
	return &Backend{root: root}
}

// Init creates the root directory if needed.
func (b *Backend) Init() error {
	if err := os.MkdirAll(b.root, 0o755); err != nil {
		return fmt.Errorf("creating storage root %s: %w", b.root, err)
	}
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) Driver() storage.Driver { return storage.DriverFilesystem }

// Root returns the directory blobs are stored in.
func (b *Backend) Root() string { return b.root }

func (b *Backend) pathFor(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(b.root, key), nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := b.pathFor(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, data []byte, overwrite bool) error {
	path, err := b.pathFor(key)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return storage.ErrExists
		}
	}

	tmp, err := os.CreateTemp(b.root, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if overwrite {
		if err := os.Rename(tmp.Name(), path); err != nil {
			return fmt.Errorf("moving blob into place: %w", err)
		}
	} else {
		// link fails if the destination exists, which makes create-only atomic
		// even when two writers race past the Stat above.
		if err := os.Link(tmp.Name(), path); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return storage.ErrExists
			}
			return fmt.Errorf("linking blob into place: %w", err)
		}
	}

	return syncDir(b.root)
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	path, err := b.pathFor(key)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *Backend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		keys = append(keys, e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// syncDir flushes the directory entry so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("syncing directory %s: %w", dir, err)
	}
	return nil
}
