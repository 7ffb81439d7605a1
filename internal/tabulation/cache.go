package tabulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/airshower/varbeam/internal/logging"
	"github.com/airshower/varbeam/internal/storage"
)

// KeySuffix is appended to the fingerprint to form the storage key.
const KeySuffix = ".vbt"

// Key returns the storage key for a fingerprint.
func Key(fingerprint string) string { return fingerprint + KeySuffix }

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Corrupt int64 `json:"corrupt"`
	Writes  int64 `json:"writes"`
	Reused  int64 `json:"reused"`
}

// Cache loads and stores table entries through a storage backend and keeps
// every loaded entry in memory for the rest of the process.
type Cache struct {
	backend storage.Backend
	log     logging.Logger

	mu   sync.RWMutex
	memo map[string]*Entry

	hits, misses, corrupt, writes, reused atomic.Int64
}

// New creates a cache over backend. A nil log uses slog.Default().
func New(backend storage.Backend, log logging.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		backend: backend,
		log:     log,
		memo:    make(map[string]*Entry),
	}
}

// Lookup returns the entry stored under fingerprint. A missing entry is
// reported as (nil, false, nil). A damaged one yields a *CorruptCacheError and
// is never returned.
func (c *Cache) Lookup(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	c.mu.RLock()
	e, ok := c.memo[fingerprint]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return e, true, nil
	}

	e, err := c.load(ctx, fingerprint)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.misses.Add(1)
		return nil, false, nil
	case errors.Is(err, ErrCorrupt):
		c.corrupt.Add(1)
		c.log.Warn("Corrupt table entry, regeneration required", "fingerprint", fingerprint, "error", err)
		return nil, false, err
	case err != nil:
		return nil, false, err
	}

	c.remember(e)
	c.hits.Add(1)
	c.log.Debug("Loaded table entry", "fingerprint", fingerprint, "bytes", e.Size())
	return e, true, nil
}

func (c *Cache) load(ctx context.Context, fingerprint string) (*Entry, error) {
	data, err := c.backend.Get(ctx, Key(fingerprint))
	if err != nil {
		return nil, err
	}
	e, err := Decode(data)
	if err != nil {
		var ce *CorruptCacheError
		if errors.As(err, &ce) {
			ce.Fingerprint = fingerprint
		}
		return nil, err
	}
	if e.Fingerprint != fingerprint {
		return nil, &CorruptCacheError{
			Fingerprint: fingerprint,
			Reason:      fmt.Sprintf("stored entry has fingerprint %s", e.Fingerprint),
		}
	}
	return e, nil
}

// Store writes e durably according to mode. In ReuseIfPresent mode an existing
// valid entry is kept and a corrupt one replaced. Concurrent writers of the
// same fingerprint are safe: content is identical, so either may win.
func (c *Cache) Store(ctx context.Context, e *Entry, mode StoreMode) error {
	if e == nil {
		return fmt.Errorf("tabulation: nil entry")
	}
	if e.Fingerprint != e.Spec.Fingerprint() {
		return fmt.Errorf("%w: %s", ErrFingerprintMismatch, e.Fingerprint)
	}

	if mode == ReuseIfPresent {
		existing, err := c.load(ctx, e.Fingerprint)
		switch {
		case err == nil:
			c.reused.Add(1)
			c.remember(existing)
			c.log.Debug("Table entry already present, reusing", "fingerprint", e.Fingerprint)
			return nil
		case errors.Is(err, ErrCorrupt):
			c.corrupt.Add(1)
			c.log.Warn("Replacing corrupt table entry", "fingerprint", e.Fingerprint, "error", err)
			return c.write(ctx, e, true)
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}

	err := c.write(ctx, e, mode == Overwrite)
	if mode == ReuseIfPresent && errors.Is(err, ErrConflict) {
		// lost a race against another writer of identical content
		c.reused.Add(1)
		c.remember(e.Clone())
		return nil
	}
	return err
}

func (c *Cache) write(ctx context.Context, e *Entry, overwrite bool) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}

	err = c.backend.Put(ctx, Key(e.Fingerprint), data, overwrite)
	if errors.Is(err, storage.ErrExists) {
		return fmt.Errorf("%w: %s", ErrConflict, e.Fingerprint)
	}
	if err != nil {
		return fmt.Errorf("storing table entry %s: %w", e.Fingerprint, err)
	}

	c.writes.Add(1)
	c.remember(e.Clone())
	c.log.Info("Stored table entry", "fingerprint", e.Fingerprint, "bytes", len(data), "driver", c.backend.Driver())
	return nil
}

func (c *Cache) remember(e *Entry) {
	c.mu.Lock()
	c.memo[e.Fingerprint] = e
	c.mu.Unlock()
}

// Forget drops a fingerprint from the in-memory memo; storage is untouched.
func (c *Cache) Forget(fingerprint string) {
	c.mu.Lock()
	delete(c.memo, fingerprint)
	c.mu.Unlock()
}

// Fingerprints lists the fingerprints present in storage.
func (c *Cache) Fingerprints(ctx context.Context) ([]string, error) {
	keys, err := c.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	var fps []string
	for _, k := range keys {
		if fp, ok := strings.CutSuffix(k, KeySuffix); ok {
			fps = append(fps, fp)
		}
	}
	return fps, nil
}

// Remove deletes an entry from storage and the memo.
func (c *Cache) Remove(ctx context.Context, fingerprint string) (bool, error) {
	c.Forget(fingerprint)
	return c.backend.Delete(ctx, Key(fingerprint))
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Corrupt: c.corrupt.Load(),
		Writes:  c.writes.Load(),
		Reused:  c.reused.Load(),
	}
}
