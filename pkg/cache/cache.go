package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented key/value cache with per-entry TTL
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Item represents a cached item with expiration
type Item struct {
	Value      []byte
	Expiration int64
}

// Expired checks if the cache item has expired
func (item Item) Expired(now time.Time) bool {
	if item.Expiration == 0 {
		return false
	}
	return now.UnixNano() > item.Expiration
}

// MemoryStore is a thread-safe in-memory Store, used when Redis is disabled
type MemoryStore struct {
	items    map[string]Item
	mu       sync.RWMutex
	maxItems int
	now      func() time.Time
}

// NewMemoryStore creates an in-memory store holding at most maxItems entries (0 = unbounded)
func NewMemoryStore(maxItems int) *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]Item),
		maxItems: maxItems,
		now:      time.Now,
	}
}

// Get retrieves an item from the cache
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found || item.Expired(c.now()) {
		return nil, ErrMiss
	}

	return item.Value, nil
}

// Set adds an item to the cache with a specific expiration time
func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = c.now().Add(ttl).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.evictOldest()
	}

	c.items[key] = Item{Value: value, Expiration: exp}
	return nil
}

// Delete removes items from the cache
func (c *MemoryStore) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

// Count returns the number of items in the cache (including expired items)
func (c *MemoryStore) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// evictOldest removes the entry closest to expiry; entries without expiry go last
func (c *MemoryStore) evictOldest() {
	var oldestKey string
	var oldest int64
	first := true

	for k, v := range c.items {
		if v.Expiration == 0 {
			continue
		}
		if first || v.Expiration < oldest {
			oldestKey, oldest, first = k, v.Expiration, false
		}
	}

	if first {
		for k := range c.items {
			oldestKey = k
			break
		}
	}

	delete(c.items, oldestKey)
}
