package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// BlobCache is a thread-safe LRU of blob contents bounded by both entry
// count and total bytes.
type BlobCache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[string, []byte]
	size    int64
	maxSize int64
}

// NewBlobCache creates a cache holding at most capacity entries and
// maxSizeBytes bytes.
func NewBlobCache(capacity int, maxSizeBytes int64) *BlobCache {
	if capacity <= 0 {
		capacity = 1
	}
	c := &BlobCache{maxSize: maxSizeBytes}
	// NewLRU only fails for a non-positive size.
	c.lru, _ = simplelru.NewLRU[string, []byte](capacity, func(_ string, data []byte) {
		c.size -= int64(len(data))
	})
	return c
}

func (c *BlobCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Set stores data under key. Items larger than the byte budget are not cached.
func (c *BlobCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dataSize := int64(len(data))
	if dataSize > c.maxSize {
		c.lru.Remove(key)
		return
	}

	c.lru.Remove(key)
	for c.size+dataSize > c.maxSize && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
	}
	c.lru.Add(key, data)
	c.size += dataSize
}

func (c *BlobCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

func (c *BlobCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Size returns the cached bytes.
func (c *BlobCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
