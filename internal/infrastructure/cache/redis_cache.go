package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paymentmanager/backend/internal/application/referencedata"
	"github.com/paymentmanager/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultScanBatchSize = 100

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisCache is a referencedata.Cache shared across instances through Redis.
// Values are stored as JSON under "<prefix>:<key>". Redis failures are
// logged and reported as misses, so a broken cache degrades to refetching.
type RedisCache[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

var _ referencedata.Cache[string] = (*RedisCache[string])(nil)

// RedisCacheOption is a functional option for configuring a RedisCache
type RedisCacheOption func(*redisCacheOptions)

type redisCacheOptions struct {
	ttl    time.Duration
	logger *zap.Logger
}

// WithTTL sets the expiry of stored entries; zero keeps them until Clear
func WithTTL(ttl time.Duration) RedisCacheOption {
	return func(o *redisCacheOptions) {
		o.ttl = ttl
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisCacheOption {
	return func(o *redisCacheOptions) {
		o.logger = logger
	}
}

// NewRedisCache creates a cache over an existing client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisCache[V any](client *redis.Client, prefix string, opts ...RedisCacheOption) *RedisCache[V] {
	o := redisCacheOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisCache[V]{
		client: client,
		prefix: prefix,
		ttl:    o.ttl,
		logger: o.logger,
	}
}

func (c *RedisCache[V]) cacheKey(key string) string {
	return c.prefix + ":" + key
}

// Get returns the stored value for key
func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	data, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.logger.Warn("Failed to read reference data from Redis",
			zap.String("key", c.cacheKey(key)),
			zap.Error(err))
		return zero, false
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Warn("Dropping corrupted reference data entry",
			zap.String("key", c.cacheKey(key)),
			zap.Error(err))
		_ = c.client.Del(ctx, c.cacheKey(key)).Err()
		return zero, false
	}
	return value, true
}

// Put stores value under key
func (c *RedisCache[V]) Put(ctx context.Context, key string, value V) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode reference data",
			zap.String("key", c.cacheKey(key)),
			zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.cacheKey(key), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write reference data to Redis",
			zap.String("key", c.cacheKey(key)),
			zap.Error(err))
	}
}

// Has reports whether key is populated
func (c *RedisCache[V]) Has(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, c.cacheKey(key)).Result()
	if err != nil {
		c.logger.Warn("Failed to check reference data in Redis",
			zap.String("key", c.cacheKey(key)),
			zap.Error(err))
		return false
	}
	return n > 0
}

// Clear deletes every key under the cache prefix
func (c *RedisCache[V]) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.prefix+":*", defaultScanBatchSize).Iterator()
	batch := make([]string, 0, defaultScanBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			c.logger.Warn("Failed to clear reference data keys", zap.Error(err))
		}
		batch = batch[:0]
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == defaultScanBatchSize {
			flush()
		}
	}
	flush()
	if err := iter.Err(); err != nil {
		c.logger.Warn("Failed to scan reference data keys",
			zap.String("prefix", c.prefix),
			zap.Error(err))
	}
}
