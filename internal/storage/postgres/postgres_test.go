package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/database"
	"github.com/airshower/varbeam/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestPostgresDSN(t *testing.T) {
	dsn := database.PostgresDSN(config.PostgresConfig{
		Host: "db", Port: "5433", Username: "u", Password: "p", Database: "varbeam",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=varbeam sslmode=disable", dsn)
}

func TestNew_Unreachable(t *testing.T) {
	_, err := New(config.PostgresConfig{
		Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Postgres DB")
}

// Runs against a live server when VARBEAM_TEST_PG_HOST is set.
func TestBackend_Live(t *testing.T) {
	host := os.Getenv("VARBEAM_TEST_PG_HOST")
	if host == "" {
		t.Skip("VARBEAM_TEST_PG_HOST not set")
	}
	b, err := New(config.PostgresConfig{
		Host: host, Port: "5432", Username: "postgres", Password: "postgres", Database: "varbeam",
	})
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	ctx := context.Background()
	_, _ = b.Delete(ctx, "live-test")
	require.NoError(t, b.Put(ctx, "live-test", []byte("x"), false))
	assert.ErrorIs(t, b.Put(ctx, "live-test", []byte("y"), false), storage.ErrExists)

	got, err := b.Get(ctx, "live-test")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}
