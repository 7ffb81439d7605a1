// Package gormstorage implements storage.Backend on any GORM dialect. The
// sqlite and postgres backends embed it and only differ in how the *gorm.DB
// is opened.
package gormstorage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/airshower/varbeam/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Blob is one stored table blob.
type Blob struct {
	Key       string `gorm:"column:blob_key;primaryKey;size:255"`
	Data      []byte `gorm:"not null"`
	Size      int
	Checksum  string `gorm:"size:64"`
	Metadata  datatypes.JSONMap
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name independent of naming strategy.
func (Blob) TableName() string { return "table_blobs" }

// Backend stores blobs in the table_blobs table.
type Backend struct {
	db     *gorm.DB
	driver storage.Driver
}

// New creates a GORM backend. driver is reported by Driver().
func New(db *gorm.DB, driver storage.Driver) *Backend {
	return &Backend{db: db, driver: driver}
}

// DB exposes the underlying connection to wrapping backends.
func (b *Backend) DB() *gorm.DB { return b.db }

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm storage: no database")
	}
	if err := b.db.AutoMigrate(&Blob{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying sql.DB.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) Driver() storage.Driver { return b.driver }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	var blob Blob
	err := b.db.WithContext(ctx).Where("blob_key = ?", key).Take(&blob).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", key, err)
	}
	return blob.Data, nil
}

// Put inserts in a single statement so the row is either absent or complete.
func (b *Backend) Put(ctx context.Context, key string, data []byte, overwrite bool) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	blob := Blob{
		Key:      key,
		Data:     data,
		Size:     len(data),
		Checksum: hex.EncodeToString(sum[:]),
		Metadata: datatypes.JSONMap{"driver": string(b.driver)},
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoNothing: true,
	}
	if overwrite {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "blob_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "size", "checksum", "metadata", "updated_at"}),
		}
	}

	res := b.db.WithContext(ctx).Clauses(onConflict).Create(&blob)
	if res.Error != nil {
		return fmt.Errorf("writing blob %s: %w", key, res.Error)
	}
	if !overwrite && res.RowsAffected == 0 {
		return storage.ErrExists
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	if err := storage.ValidateKey(key); err != nil {
		return false, err
	}
	res := b.db.WithContext(ctx).Where("blob_key = ?", key).Delete(&Blob{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (b *Backend) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.db.WithContext(ctx).Model(&Blob{}).Order("blob_key").Pluck("blob_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}
