package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGet(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	data := []byte("PGCOPY stream payload")
	require.NoError(t, store.Put(ctx, "runs/abc/batch_000001.pgcopy", data))

	got, err := store.Get(ctx, "runs/abc/batch_000001.pgcopy")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStorageGetMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing/object")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrObjectNotFound))
}

func TestLocalStorageExists(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ok, err := store.Exists(ctx, "obj")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "obj", []byte("x")))
	ok, err = store.Exists(ctx, "obj")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalStorageDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "obj", []byte("x")))
	require.NoError(t, store.Delete(ctx, "obj"))

	ok, err := store.Exists(ctx, "obj")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing object is not an error
	require.NoError(t, store.Delete(ctx, "obj"))
}

func TestLocalStorageList(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	objects := []string{
		"captures/run1/batch_000001.pgcopy",
		"captures/run1/manifest.json",
		"captures/run2/batch_000001.pgcopy",
	}
	for _, obj := range objects {
		require.NoError(t, store.Put(ctx, obj, []byte("x")))
	}

	listed, err := store.List(ctx, "captures/run1")
	require.NoError(t, err)
	assert.ElementsMatch(t, objects[:2], listed)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, objects, all)
}

func TestLocalStorageContextCancelled(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, store.Put(ctx, "obj", []byte("x")))
	_, err = store.Get(ctx, "obj")
	require.Error(t, err)
}
