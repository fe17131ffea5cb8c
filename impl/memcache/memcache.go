// Package memcache is the in-memory artifact store. It is an LRU keyed by the
// canonical cache key (BitmapKey, or DownloadKey for raw downloads and mipmap
// master tiles). Eviction is the LRU's own policy.
package memcache

import (
	"github.com/aceeric/imgcache/impl/bitmap"
	"github.com/aceeric/imgcache/impl/metrics"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of artifacts held when no size is configured
const DefaultSize = 256

type BitmapCache struct {
	lru *lru.Cache[string, bitmap.Info]
}

// New creates a BitmapCache holding at most 'size' artifacts. A size less than one
// gets DefaultSize.
func New(size int) (*BitmapCache, error) {
	if size < 1 {
		size = DefaultSize
	}
	c, err := lru.NewWithEvict(size, func(string, bitmap.Info) {
		metrics.DeltaMemCacheCount(-1)
	})
	if err != nil {
		return nil, err
	}
	return &BitmapCache{lru: c}, nil
}

// Get returns the artifact for the key, tagged as served from memory. The Source
// recorded by the producer is left alone.
func (c *BitmapCache) Get(key string) (bitmap.Info, bool) {
	info, exists := c.lru.Get(key)
	if !exists {
		return bitmap.Info{}, false
	}
	return info.WithOrigin(bitmap.FromMemory), true
}

// Put adds the artifact under the key. An existing entry for the key is replaced,
// never modified.
func (c *BitmapCache) Put(key string, info bitmap.Info) {
	if info.IsEmpty() {
		return
	}
	if c.lru.Contains(key) {
		c.lru.Add(key, info.WithKey(key))
		return
	}
	c.lru.Add(key, info.WithKey(key))
	metrics.DeltaMemCacheCount(1)
}

// Contains checks for the key without updating recency
func (c *BitmapCache) Contains(key string) bool {
	return c.lru.Contains(key)
}

// Remove evicts the key
func (c *BitmapCache) Remove(key string) {
	c.lru.Remove(key)
}

// Len is the number of cached artifacts
func (c *BitmapCache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache
func (c *BitmapCache) Purge() {
	c.lru.Purge()
}
