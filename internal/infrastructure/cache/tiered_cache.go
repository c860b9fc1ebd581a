package cache

import (
	"context"
	"sync/atomic"

	"github.com/paymentmanager/backend/internal/application/referencedata"
)

// TieredCache implements a two-tier caching strategy.
// L1 is local to the instance, L2 is shared across instances.
// Reads go L1 then L2, and an L2 hit is copied into L1. Writes go to both tiers.
type TieredCache[V any] struct {
	l1 referencedata.Cache[V]
	l2 referencedata.Cache[V]

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64
}

var _ referencedata.Cache[string] = (*TieredCache[string])(nil)

// TieredStats reports hit counters of a TieredCache
type TieredStats struct {
	L1Hits int64
	L2Hits int64
	Misses int64
}

// NewTieredCache creates a tiered cache from a local and a shared tier
func NewTieredCache[V any](l1, l2 referencedata.Cache[V]) *TieredCache[V] {
	return &TieredCache[V]{l1: l1, l2: l2}
}

// Get returns the stored value for key
func (c *TieredCache[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := c.l1.Get(ctx, key); ok {
		c.l1Hits.Add(1)
		return v, true
	}
	if v, ok := c.l2.Get(ctx, key); ok {
		c.l2Hits.Add(1)
		c.l1.Put(ctx, key, v)
		return v, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Put stores value in both tiers
func (c *TieredCache[V]) Put(ctx context.Context, key string, value V) {
	c.l1.Put(ctx, key, value)
	c.l2.Put(ctx, key, value)
}

// Has reports whether either tier holds key
func (c *TieredCache[V]) Has(ctx context.Context, key string) bool {
	return c.l1.Has(ctx, key) || c.l2.Has(ctx, key)
}

// Clear empties both tiers
func (c *TieredCache[V]) Clear(ctx context.Context) {
	c.l1.Clear(ctx)
	c.l2.Clear(ctx)
}

// Stats returns the hit counters
func (c *TieredCache[V]) Stats() TieredStats {
	return TieredStats{
		L1Hits: c.l1Hits.Load(),
		L2Hits: c.l2Hits.Load(),
		Misses: c.misses.Load(),
	}
}
