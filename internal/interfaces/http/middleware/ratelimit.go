package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"
	"github.com/paymentmanager/backend/internal/interfaces/http/dto"
)

// Headers reporting the caller's budget on allowed requests
const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// RateLimiter is a fixed-window limiter keyed by client. Each window is a
// ttlcache entry that expires when the window ends.
type RateLimiter struct {
	mu      sync.Mutex
	windows *ttlcache.Cache[string, int]
	limit   int
}

// NewRateLimiter creates a limiter allowing limit requests per window and
// starts the goroutine that drops finished windows
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	windows := ttlcache.New(
		ttlcache.WithTTL[string, int](window),
		ttlcache.WithDisableTouchOnHit[string, int](),
	)
	go windows.Start()
	return &RateLimiter{
		windows: windows,
		limit:   limit,
	}
}

// Stop stops the expiry goroutine
func (rl *RateLimiter) Stop() {
	rl.windows.Stop()
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	item := rl.windows.Get(key)
	if item == nil {
		rl.windows.Set(key, 1, ttlcache.DefaultTTL)
		return true
	}
	remaining := time.Until(item.ExpiresAt())
	if remaining <= 0 {
		rl.windows.Set(key, 1, ttlcache.DefaultTTL)
		return true
	}
	used := item.Value()
	if used >= rl.limit {
		return false
	}
	rl.windows.Set(key, used+1, remaining)
	return true
}

// Remaining returns the number of remaining requests for the given key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	item := rl.windows.Get(key)
	if item == nil || !time.Now().Before(item.ExpiresAt()) {
		return rl.limit
	}
	return max(rl.limit-item.Value(), 0)
}

// RateLimit returns a middleware limiting requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Header(RateLimitLimitHeader, strconv.Itoa(limiter.limit))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
