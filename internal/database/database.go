package database

import (
	"errors"
	"fmt"
	"os"

	"github.com/airshower/varbeam/internal/config"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN is the shared-cache in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

// PostgresDSN builds the connection string for cfg.
func PostgresDSN(cfg config.PostgresConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		sslMode,
	)
}

// OpenPostgres returns a connection to the Postgres database.
func OpenPostgres(cfg config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return db, nil
}

// OpenSQLite returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// A file-backed table store must survive a crash after Put returns, so
	// only the in-memory database runs without journaling.
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}
	if path == "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = MEMORY;", "PRAGMA synchronous = OFF;")
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;", "PRAGMA synchronous = FULL;", "PRAGMA busy_timeout = 5000;")
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	return db, nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	// remove existing file if it exists
	if exists, err := os.Stat(sqliteFilePath); err == nil && exists != nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %s", err)
		}
	}

	err := db.Exec("VACUUM INTO 'file:" + sqliteFilePath + "';").Error
	if err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %s", err)
	}

	return nil
}

// RestoreMemoryDBFromDisk copies the rows of tables from a VACUUM INTO dump
// into the in-memory database. Rows already present are kept. A missing dump
// file is not an error.
func RestoreMemoryDBFromDisk(db *gorm.DB, sqliteFilePath string, tables ...string) (bool, error) {
	if sqliteFilePath == "" {
		return false, fmt.Errorf("sqlite file path not set")
	}
	if _, err := os.Stat(sqliteFilePath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	// ATTACH is per connection, so the copy must stay on one
	err := db.Connection(func(tx *gorm.DB) error {
		if err := tx.Exec("ATTACH DATABASE ? AS snapshot;", sqliteFilePath).Error; err != nil {
			return fmt.Errorf("error attaching dump: %w", err)
		}
		defer tx.Exec("DETACH DATABASE snapshot;")

		for _, table := range tables {
			stmt := fmt.Sprintf("INSERT OR IGNORE INTO main.%q SELECT * FROM snapshot.%q;", table, table)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("error restoring table %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
