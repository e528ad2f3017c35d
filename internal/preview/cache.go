package preview

import (
	"crypto/sha256"
	"sync"
)

// Result is a memoized preview of one document.
type Result struct {
	Text   string
	Images []Image
}

// Cache memoizes previews keyed by the SHA-256 of the source bytes.
// Previews depend only on the input bytes, so a hit never goes stale.
// Bounded by entry count with FIFO eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[[32]byte]*Result
	order   [][32]byte
	max     int
}

// NewCache creates a cache holding up to max previews.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = 64
	}
	return &Cache{
		entries: make(map[[32]byte]*Result),
		max:     max,
	}
}

// Preview returns the memoized preview for data, computing it on the
// first call. A document whose preview fails is not cached, so a
// later upload of corrected bytes is re-read.
func (c *Cache) Preview(data []byte) (*Result, error) {
	key := sha256.Sum256(data)

	c.mu.Lock()
	if res, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return res, nil
	}
	c.mu.Unlock()

	// Compute outside the lock; concurrent misses for the same key
	// just do the work twice and store the same value.
	text, err := Text(data)
	if err != nil {
		return nil, err
	}
	images, err := Images(data)
	if err != nil {
		return nil, err
	}
	res := &Result{Text: text, Images: images}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, nil
	}
	for len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = res
	c.order = append(c.order, key)
	return res, nil
}

// Len reports how many previews are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
