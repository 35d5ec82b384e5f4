package blobcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/failure"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "nested", "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCache_PutGetRemove(t *testing.T) {
	cache := openTestCache(t)

	require.NoError(t, cache.Put("book-1", []byte("PK\x03\x04epub")))

	data, ok, err := cache.Get("book-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("PK\x03\x04epub"), data)

	has, err := cache.Has("book-1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, cache.Remove("book-1"))
	_, ok, err = cache.Get("book-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Remove("never-there"))
}

func TestCache_PutReplaces(t *testing.T) {
	cache := openTestCache(t)
	require.NoError(t, cache.Put("b", []byte("one")))
	require.NoError(t, cache.Put("b", []byte("two!")))

	data, _, err := cache.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "two!", string(data))

	count, size, err := cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(4), size)
}

func TestCache_WriteFailureKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")
	cache, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	err = cache.Put("b", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, failure.KindCacheWrite, failure.KindOf(err))

	err = cache.Put("", []byte("x"))
	assert.Equal(t, failure.KindInvalidInput, failure.KindOf(err))
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")
	cache, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, cache.Put("b", []byte("content")))
	require.NoError(t, cache.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, ok, err := reopened.Get("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "content", string(data))
}
