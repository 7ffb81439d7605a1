package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/storage"
	fsstorage "github.com/airshower/varbeam/internal/storage/fs"
	"github.com/airshower/varbeam/internal/storage/memory"
	pgstorage "github.com/airshower/varbeam/internal/storage/postgres"
	s3storage "github.com/airshower/varbeam/internal/storage/s3"
	sqlitestorage "github.com/airshower/varbeam/internal/storage/sqlite"
)

// openStorage creates and initializes the configured table store.
func openStorage(ctx context.Context, storageCfg config.StorageConfig, log *slog.Logger) (storage.Backend, error) {
	backend, err := createStorageBackend(ctx, storageCfg, log)
	if err != nil {
		log.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		log.Error("Failed to initialize storage backend", "driver", backend.Driver(), "error", err)
		_ = backend.Close()
		return nil, err
	}
	log.Info("Storage backend initialized", "driver", backend.Driver())
	return backend, nil
}

func createStorageBackend(ctx context.Context, storageCfg config.StorageConfig, log *slog.Logger) (storage.Backend, error) {
	switch storage.Driver(storageCfg.Type) {
	case storage.DriverFilesystem, "":
		return fsstorage.New(fsstorage.Config{Root: storageCfg.FS.Root}), nil

	case storage.DriverMemory:
		return memory.New(), nil

	case storage.DriverSQLite:
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path:         storageCfg.SQLite.Path,
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case storage.DriverPostgres:
		backend, err := pgstorage.New(storageCfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		return backend, nil

	case storage.DriverS3:
		backend, err := s3storage.New(ctx, storageCfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 backend: %w", err)
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %q", storageCfg.Type)
	}
}
