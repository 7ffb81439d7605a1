// internal/storage/memory/memory.go
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/airshower/varbeam/internal/storage"
)

// Backend stores blobs in a process-local map. Nothing survives the process;
// it exists for tests and dry runs.
type Backend struct {
	blobs map[string][]byte
	mu    sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{blobs: make(map[string][]byte)}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) Driver() storage.Driver { return storage.DriverMemory }

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *Backend) Put(_ context.Context, key string, data []byte, overwrite bool) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.blobs[key]; ok && !overwrite {
		return storage.ErrExists
	}
	b.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.blobs[key]; !ok {
		return false, nil
	}
	delete(b.blobs, key)
	return true, nil
}

func (b *Backend) List(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.blobs))
	for k := range b.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Corrupt overwrites the stored bytes without validation. Tests use it to
// simulate damaged storage.
func (b *Backend) Corrupt(key string, mutate func([]byte) []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if data, ok := b.blobs[key]; ok {
		b.blobs[key] = mutate(append([]byte(nil), data...))
	}
}
