package repositories

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlobStore(t *testing.T) *LocalBlobStore {
	t.Helper()
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLocalBlobStore_PutGet(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	data := []byte("pdf bytes")
	require.NoError(t, store.Put(ctx, "uploads/abc.pdf", data))

	got, err := store.Get(ctx, "uploads/abc.pdf")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalBlobStore_GetMissing(t *testing.T) {
	store := newTestBlobStore(t)
	_, err := store.Get(context.Background(), "uploads/missing.pdf")
	require.Error(t, err)
	assert.True(t, IsBlobNotFound(err))
}

func TestLocalBlobStore_Delete(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "exports/p1.zip", []byte("zip")))
	require.NoError(t, store.Delete(ctx, "exports/p1.zip"))

	_, err := store.Get(ctx, "exports/p1.zip")
	assert.True(t, IsBlobNotFound(err))

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "exports/p1.zip"))
}

func TestLocalBlobStore_SignedURL(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "exports/p1.zip", []byte("zip")))

	url, err := store.SignedURL(ctx, "exports/p1.zip", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))

	_, err = store.SignedURL(ctx, "exports/other.zip", time.Hour)
	assert.True(t, IsBlobNotFound(err))
}

func TestLocalBlobStore_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalBlobStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	outside := filepath.Join(dir, "..", "escape.txt")
	assert.Error(t, store.Put(ctx, "../escape.txt", []byte("nope")))
	assert.Error(t, store.Put(ctx, "/abs/escape.txt", []byte("nope")))

	_, statErr := os.Stat(outside)
	assert.True(t, os.IsNotExist(statErr))
}
