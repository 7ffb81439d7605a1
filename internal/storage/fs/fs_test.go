package fsstorage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/airshower/varbeam/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Config{Root: filepath.Join(t.TempDir(), "tables")})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestPutGet_RoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	data := []byte{0x00, 0xff, 0x10, 'a'}
	require.NoError(t, b.Put(ctx, "k1", data, false))

	got, err := b.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGet_NotFound(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPut_CreateOnlyKeepsExisting(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("first"), false))
	err := b.Put(ctx, "k", []byte("second"), false)
	assert.ErrorIs(t, err, storage.ErrExists)

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestPut_Overwrite(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "k", []byte("first"), false))
	require.NoError(t, b.Put(ctx, "k", []byte("second"), true))

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestPut_LeavesNoTempFiles(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "a", []byte("x"), false))
	require.NoError(t, b.Put(ctx, "a", []byte("y"), true))
	_ = b.Put(ctx, "a", []byte("z"), false)

	entries, err := os.ReadDir(b.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Name())
}

func TestPut_ConcurrentCreateOnlyOneWins(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = b.Put(ctx, "race", []byte("same content"), false)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, storage.ErrExists)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestDeleteAndList(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "b", []byte("2"), false))
	require.NoError(t, b.Put(ctx, "a", []byte("1"), false))

	keys, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	ok, err := b.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err = b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestInvalidKey(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	assert.Error(t, b.Put(ctx, "../escape", []byte("x"), true))
	_, err := b.Get(ctx, "a/b")
	assert.Error(t, err)
}
