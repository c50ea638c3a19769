// Package cache memoizes labeling results for identical corpus and
// configuration submissions.
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kestrelml/weaklabel/internal/analysis"
	"github.com/kestrelml/weaklabel/internal/types"
)

// Item is a cached result with expiration.
type Item struct {
	Result    *analysis.Result
	ExpiresAt time.Time
}

// IsExpired checks if the item has expired.
func (i *Item) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// Cache provides thread-safe result caching with TTL.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*Item
	ttl   time.Duration

	hits   int64
	misses int64
}

// NewCache creates a cache with the given TTL and starts the cleanup
// loop.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]*Item),
		ttl:   ttl,
	}
	go c.cleanup()
	return c
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		for key, item := range c.items {
			if item.IsExpired() {
				delete(c.items, key)
			}
		}
		c.mu.Unlock()
	}
}

// Key derives a stable digest from the corpus, configuration, and
// labeling function names. Document order matters: the same documents
// in a different order are a different key.
func Key(docs []types.Document, cfg types.EngineConfig, functionNames []string) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	enc.Encode(cfg)
	enc.Encode(functionNames)
	for _, doc := range docs {
		enc.Encode(doc)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get retrieves a cached result.
func (c *Cache) Get(key string) (*analysis.Result, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || item.IsExpired() {
		c.mu.Lock()
		if exists && item.IsExpired() {
			delete(c.items, key)
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return item.Result, true
}

// Set stores a result under key.
func (c *Cache) Set(key string, result *analysis.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &Item{
		Result:    result,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

// Stats reports hit and miss counts plus current size.
func (c *Cache) Stats() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]int64{
		"hits":   c.hits,
		"misses": c.misses,
		"size":   int64(len(c.items)),
	}
}
