// Package blobcache stores downloaded EPUB content keyed by book id in a
// bbolt file. Each Put commits the whole payload in one transaction, so a
// reader never sees a partially written book.
package blobcache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mrlokans/lumina/internal/failure"
)

var bucketBlobs = []byte("blobs")

// Cache is a bbolt-backed blob store.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if needed) the cache file at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blob bucket: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Put stores data under id, replacing any previous content. Failures are
// reported as CacheWriteFailure.
func (c *Cache) Put(id string, data []byte) error {
	if id == "" {
		return failure.Newf(failure.KindInvalidInput, "blobcache.put", "empty blob id")
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(id), data)
	})
	if err != nil {
		return failure.New(failure.KindCacheWrite, "blobcache.put", err)
	}
	return nil
}

// Get returns a copy of the content stored under id. ok is false when the
// id is not cached.
func (c *Cache) Get(id string) (data []byte, ok bool, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(id))
		if v == nil {
			return nil
		}
		// bbolt values are only valid inside the transaction
		data = make([]byte, len(v))
		copy(data, v)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	return data, ok, nil
}

// Has reports whether id is cached without copying its content.
func (c *Cache) Has(id string) (bool, error) {
	var ok bool
	err := c.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(bucketBlobs).Get([]byte(id)) != nil
		return nil
	})
	return ok, err
}

// Remove deletes the content stored under id. Removing a missing id is not
// an error.
func (c *Cache) Remove(id string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Delete([]byte(id))
	})
	if err != nil {
		return failure.New(failure.KindCacheWrite, "blobcache.remove", err)
	}
	return nil
}

// Stats returns the number of cached blobs and their total size in bytes.
func (c *Cache) Stats() (count int, size int64, err error) {
	err = c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).ForEach(func(_, v []byte) error {
			count++
			size += int64(len(v))
			return nil
		})
	})
	return count, size, err
}
