package referencedata

import (
	"context"
	"sync"
)

// Cache memoizes resolved reference data by key. Entries are never evicted;
// Clear exists for test isolation and explicit session resets.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Put(ctx context.Context, key string, value V)
	Has(ctx context.Context, key string) bool
	Clear(ctx context.Context)
}

// MemoryCache is a process-local Cache
type MemoryCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

var _ Cache[string] = (*MemoryCache[string])(nil)

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache[V any]() *MemoryCache[V] {
	return &MemoryCache[V]{
		entries: make(map[string]V),
	}
}

// Get returns the stored value for key
func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores value under key, overwriting any previous value
func (c *MemoryCache[V]) Put(_ context.Context, key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Has reports whether key is populated
func (c *MemoryCache[V]) Has(_ context.Context, key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Clear drops every entry
func (c *MemoryCache[V]) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]V)
}

// Len returns the number of entries
func (c *MemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
