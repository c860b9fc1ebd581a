package cache

import (
	"fmt"

	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/domain/geography"
	"github.com/paymentmanager/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendTiered = "tiered"
)

// NewReferenceCaches builds the resolver caches for the configured backend.
// client may be nil for the memory backend.
func NewReferenceCaches(cfg config.CacheConfig, client *redis.Client, logger *zap.Logger) (referencedata.Caches, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", BackendMemory:
		return referencedata.NewMemoryCaches(), nil
	case BackendRedis, BackendTiered:
		if client == nil {
			return referencedata.Caches{}, fmt.Errorf("cache backend %q requires a Redis client", cfg.Backend)
		}
	default:
		return referencedata.Caches{}, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	opts := []RedisCacheOption{WithTTL(cfg.TTL), WithCacheLogger(logger.Named("refdata_cache"))}
	remote := referencedata.Caches{
		Countries: NewRedisCache[[]geography.Country](client, cfg.KeyPrefix+":countries", opts...),
		States:    NewRedisCache[[]string](client, cfg.KeyPrefix+":states", opts...),
		Cities:    NewRedisCache[[]string](client, cfg.KeyPrefix+":cities", opts...),
		Currency:  NewRedisCache[string](client, cfg.KeyPrefix+":currency", opts...),
	}
	if cfg.Backend == BackendRedis {
		return remote, nil
	}

	local := referencedata.NewMemoryCaches()
	return referencedata.Caches{
		Countries: NewTieredCache(local.Countries, remote.Countries),
		States:    NewTieredCache(local.States, remote.States),
		Cities:    NewTieredCache(local.Cities, remote.Cities),
		Currency:  NewTieredCache(local.Currency, remote.Currency),
	}, nil
}
