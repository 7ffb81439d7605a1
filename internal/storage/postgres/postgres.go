// Package postgres implements storage.Backend on PostgreSQL, so that table
// caches can be shared between nodes of a batch farm.
package postgres

import (
	"fmt"

	"github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/database"
	"github.com/airshower/varbeam/internal/storage"
	gormstorage "github.com/airshower/varbeam/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
}

// New connects to the database described by cfg.
func New(cfg config.PostgresConfig) (*Backend, error) {
	db, err := database.OpenPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres DB: %w", err)
	}
	return &Backend{Backend: gormstorage.New(db, storage.DriverPostgres)}, nil
}
