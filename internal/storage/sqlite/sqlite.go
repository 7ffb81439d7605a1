// Package sqlitestorage implements storage.Backend on a SQLite database.
// It wraps the GORM backend via composition. With an empty path the database
// lives in memory, is periodically dumped to disk via VACUUM INTO and is
// reloaded from that dump on the next Init.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/airshower/varbeam/internal/database"
	"github.com/airshower/varbeam/internal/logging"
	"github.com/airshower/varbeam/internal/storage"
	gormstorage "github.com/airshower/varbeam/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path         string // empty = in-memory
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg      Config
	log      logging.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// New opens the SQLite database described by cfg.
func New(cfg Config, log logging.Logger) (*Backend, error) {
	db, err := database.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Backend{
		Backend:  gormstorage.New(db, storage.DriverSQLite),
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema. For in-memory databases it reloads the previous
// dump, if any, and starts the dump goroutine. Entries stored in memory are
// only durable once a dump has completed.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.Path != "" || b.cfg.DumpPath == "" {
		return nil
	}

	restored, err := database.RestoreMemoryDBFromDisk(b.DB(), b.cfg.DumpPath, gormstorage.Blob{}.TableName())
	if err != nil {
		return fmt.Errorf("failed to restore SQLite dump: %w", err)
	}
	if restored {
		b.log.Info("Restored in-memory tables from dump", "path", b.cfg.DumpPath)
	}

	if b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	if b.cfg.Path == "" && b.cfg.DumpPath != "" {
		if err := database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath); err != nil {
			b.log.Error("Final dump failed", "path", b.cfg.DumpPath, "error", err)
		}
	}
	return b.Backend.Close()
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			} else {
				b.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
