package gormstorage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/airshower/varbeam/internal/database"
	"github.com/airshower/varbeam/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)

	b := New(db, storage.DriverSQLite)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_NoDB(t *testing.T) {
	b := New(nil, storage.DriverSQLite)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestPutGet_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	data := []byte{0, 1, 2, 0xfe, 0xff}
	require.NoError(t, b.Put(ctx, "abc", data, false))

	got, err := b.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGet_NotFound(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPut_CreateOnlyConflict(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("one"), false))
	assert.ErrorIs(t, b.Put(ctx, "k", []byte("two"), false), storage.ErrExists)

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))
}

func TestPut_OverwriteReplaces(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("one"), false))
	require.NoError(t, b.Put(ctx, "k", []byte("two"), true))

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	var blob Blob
	require.NoError(t, b.DB().Where("blob_key = ?", "k").Take(&blob).Error)
	assert.Equal(t, 3, blob.Size)
	assert.Len(t, blob.Checksum, 64)
	assert.Equal(t, "sqlite", blob.Metadata["driver"])
}

func TestDeleteList(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "b", []byte("x"), false))
	require.NoError(t, b.Put(ctx, "a", []byte("y"), false))

	keys, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	ok, err := b.Delete(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Delete(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDriver(t *testing.T) {
	assert.Equal(t, storage.DriverPostgres, New(nil, storage.DriverPostgres).Driver())
}
