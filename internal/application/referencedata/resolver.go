package referencedata

import (
	"context"
	"fmt"

	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// countriesKey is the single cache key of the global country list
const countriesKey = "*"

// Kind names the reference-data list a request resolves
type Kind int

const (
	KindCountries Kind = iota
	KindStates
	KindCities
	KindCurrency
)

// String returns the kind name used in logs and cache namespaces
func (k Kind) String() string {
	switch k {
	case KindCountries:
		return "countries"
	case KindStates:
		return "states"
	case KindCities:
		return "cities"
	case KindCurrency:
		return "currency"
	}
	return "unknown"
}

// Request is one reference-data lookup
type Request struct {
	Kind Kind
	Key  geography.Key
}

// String returns "kind:key"
func (r Request) String() string {
	return r.Kind.String() + ":" + r.Key.String()
}

// Response carries the outcome of a Request
type Response struct {
	Request   Request
	Countries []geography.Country
	Values    []string
	Currency  string
	Err       error
}

// Empty reports whether the response carries no data
func (r Response) Empty() bool {
	switch r.Request.Kind {
	case KindCountries:
		return len(r.Countries) == 0
	case KindCurrency:
		return r.Currency == ""
	default:
		return len(r.Values) == 0
	}
}

// Caches groups the per-kind caches a Resolver reads through
type Caches struct {
	Countries Cache[[]geography.Country]
	States    Cache[[]string]
	Cities    Cache[[]string]
	Currency  Cache[string]
}

// NewMemoryCaches returns a fresh set of in-memory caches
func NewMemoryCaches() Caches {
	return Caches{
		Countries: NewMemoryCache[[]geography.Country](),
		States:    NewMemoryCache[[]string](),
		Cities:    NewMemoryCache[[]string](),
		Currency:  NewMemoryCache[string](),
	}
}

// Clear empties every cache in the group
func (c Caches) Clear(ctx context.Context) {
	c.Countries.Clear(ctx)
	c.States.Clear(ctx)
	c.Cities.Clear(ctx)
	c.Currency.Clear(ctx)
}

// Resolver answers reference-data lookups from its caches, falling back to
// the DataSource on a miss. Concurrent lookups of the same key share one
// upstream call. Empty upstream results are returned but not cached.
type Resolver struct {
	source geography.DataSource
	caches Caches
	group  singleflight.Group
	logger *zap.Logger
}

// ResolverOption is a functional option for configuring the resolver
type ResolverOption func(*Resolver)

// WithCaches replaces the default in-memory caches
func WithCaches(caches Caches) ResolverOption {
	return func(r *Resolver) {
		r.caches = caches
	}
}

// WithLogger sets the logger for the resolver
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver over source
func NewResolver(source geography.DataSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source: source,
		caches: NewMemoryCaches(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Caches returns the caches the resolver reads through
func (r *Resolver) Caches() Caches {
	return r.caches
}

// ResolveCountries returns the global country list
func (r *Resolver) ResolveCountries(ctx context.Context) ([]geography.Country, error) {
	return resolve(ctx, r, r.caches.Countries, Request{Kind: KindCountries}, countriesKey,
		func(ctx context.Context) ([]geography.Country, error) {
			return r.source.ListCountries(ctx)
		},
		func(v []geography.Country) bool { return len(v) == 0 },
	)
}

// ResolveStates returns the states of country
func (r *Resolver) ResolveStates(ctx context.Context, country string) ([]string, error) {
	key := geography.CountryKey(country)
	return resolve(ctx, r, r.caches.States, Request{Kind: KindStates, Key: key}, key.String(),
		func(ctx context.Context) ([]string, error) {
			return r.source.ListStates(ctx, country)
		},
		emptyList,
	)
}

// ResolveCities returns the cities of country, narrowed to state when state
// is not empty. Country-scoped and state-scoped lists are separate entries.
func (r *Resolver) ResolveCities(ctx context.Context, country, state string) ([]string, error) {
	key := geography.StateKey(country, state)
	return resolve(ctx, r, r.caches.Cities, Request{Kind: KindCities, Key: key}, key.String(),
		func(ctx context.Context) ([]string, error) {
			if key.HasState() {
				return r.source.ListCitiesForState(ctx, country, state)
			}
			return r.source.ListCities(ctx, country)
		},
		emptyList,
	)
}

// ResolveCurrency returns the currency code of country
func (r *Resolver) ResolveCurrency(ctx context.Context, country string) (string, error) {
	key := geography.CountryKey(country)
	return resolve(ctx, r, r.caches.Currency, Request{Kind: KindCurrency, Key: key}, key.String(),
		func(ctx context.Context) (string, error) {
			return r.source.GetCurrency(ctx, country)
		},
		func(v string) bool { return v == "" },
	)
}

// Fetch resolves a Request and packages the outcome as a Response
func (r *Resolver) Fetch(ctx context.Context, req Request) Response {
	resp := Response{Request: req}
	switch req.Kind {
	case KindCountries:
		resp.Countries, resp.Err = r.ResolveCountries(ctx)
	case KindStates:
		resp.Values, resp.Err = r.ResolveStates(ctx, req.Key.Country)
	case KindCities:
		resp.Values, resp.Err = r.ResolveCities(ctx, req.Key.Country, req.Key.State)
	case KindCurrency:
		resp.Currency, resp.Err = r.ResolveCurrency(ctx, req.Key.Country)
	default:
		resp.Err = shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unknown request kind %d", req.Kind))
	}
	return resp
}

func emptyList(v []string) bool { return len(v) == 0 }

func resolve[V any](
	ctx context.Context,
	r *Resolver,
	cache Cache[V],
	req Request,
	key string,
	fetch func(context.Context) (V, error),
	isEmpty func(V) bool,
) (V, error) {
	if v, ok := cache.Get(ctx, key); ok {
		return v, nil
	}

	res, err, dup := r.group.Do(req.String(), func() (any, error) {
		if v, ok := cache.Get(ctx, key); ok {
			return v, nil
		}
		r.logger.Debug("Fetching reference data", zap.String("request", req.String()))
		v, err := fetch(ctx)
		if err != nil {
			return v, err
		}
		if isEmpty(v) {
			r.logger.Debug("Upstream returned no reference data", zap.String("request", req.String()))
			return v, nil
		}
		cache.Put(ctx, key, v)
		return v, nil
	})
	if err != nil {
		r.logger.Warn("Reference data lookup failed",
			zap.String("request", req.String()),
			zap.Bool("shared", dup),
			zap.Error(err))
		var zero V
		return zero, unavailable(req, err)
	}
	return res.(V), nil
}

func unavailable(req Request, err error) error {
	return shared.WrapDomainError(
		shared.CodeDataSourceUnavailable,
		fmt.Sprintf("Failed to load %s", req.Kind),
		err,
	)
}
