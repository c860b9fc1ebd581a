package cache

import (
	"context"

	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeteredCache counts hits and misses of a reference data cache
type MeteredCache[V any] struct {
	next    referencedata.Cache[V]
	lookups *telemetry.Counter
	hit     []attribute.KeyValue
	miss    []attribute.KeyValue
}

var _ referencedata.Cache[string] = (*MeteredCache[string])(nil)

// NewMeteredCache wraps next, reporting each Get on lookups under kind
func NewMeteredCache[V any](next referencedata.Cache[V], lookups *telemetry.Counter, kind referencedata.Kind) *MeteredCache[V] {
	k := telemetry.AttrRefDataKind.String(kind.String())
	return &MeteredCache[V]{
		next:    next,
		lookups: lookups,
		hit:     []attribute.KeyValue{k, telemetry.AttrCacheResult.String("hit")},
		miss:    []attribute.KeyValue{k, telemetry.AttrCacheResult.String("miss")},
	}
}

// Get returns the stored value for key
func (c *MeteredCache[V]) Get(ctx context.Context, key string) (V, bool) {
	v, ok := c.next.Get(ctx, key)
	if ok {
		c.lookups.Inc(ctx, c.hit...)
	} else {
		c.lookups.Inc(ctx, c.miss...)
	}
	return v, ok
}

// Put stores value under key
func (c *MeteredCache[V]) Put(ctx context.Context, key string, value V) {
	c.next.Put(ctx, key, value)
}

// Has reports whether key is stored without counting a lookup
func (c *MeteredCache[V]) Has(ctx context.Context, key string) bool {
	return c.next.Has(ctx, key)
}

// Clear empties the wrapped cache
func (c *MeteredCache[V]) Clear(ctx context.Context) {
	c.next.Clear(ctx)
}

// InstrumentCaches wraps every cache of caches with a shared
// refdata_cache_lookups_total counter. A nil meter returns caches as is.
func InstrumentCaches(caches referencedata.Caches, meter metric.Meter) (referencedata.Caches, error) {
	if meter == nil {
		return caches, nil
	}
	lookups, err := telemetry.NewCounter(meter, "refdata_cache_lookups_total",
		"Reference data cache lookups by kind and result", "{lookup}")
	if err != nil {
		return referencedata.Caches{}, err
	}
	return referencedata.Caches{
		Countries: NewMeteredCache(caches.Countries, lookups, referencedata.KindCountries),
		States:    NewMeteredCache(caches.States, lookups, referencedata.KindStates),
		Cities:    NewMeteredCache(caches.Cities, lookups, referencedata.KindCities),
		Currency:  NewMeteredCache(caches.Currency, lookups, referencedata.KindCurrency),
	}, nil
}
