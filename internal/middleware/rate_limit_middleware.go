package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storeops-backend/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds the window settings for one limited route group
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

// DefaultVerifyRateLimitConfig throttles pickup code redemption
func DefaultVerifyRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 30,
		Window:      time.Minute,
		KeyPrefix:   "rl:pickup:verify",
	}
}

// RateLimiter counts requests per key in fixed Redis windows
type RateLimiter struct {
	redisClient redis.UniversalClient
}

func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// LimitByUser keys the window on the authenticated employee and store, falling
// back to the client IP. A nil limiter or Redis outage lets requests through.
func (rl *RateLimiter) LimitByUser(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.redisClient == nil {
			c.Next()
			return
		}

		log := GetLoggerFromContext(c)
		key := fmt.Sprintf("%s:ip:%s", cfg.KeyPrefix, c.ClientIP())
		if userID, ok := GetUserID(c); ok {
			storeID, _ := GetUserStoreID(c)
			key = fmt.Sprintf("%s:user:%s:%d", cfg.KeyPrefix, storeID, userID)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		// SET NX EX and INCR share one MULTI so a counter never exists without its window
		var incr *redis.IntCmd
		_, err := rl.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, key, 0, cfg.Window)
			incr = pipe.Incr(ctx, key)
			return nil
		})
		if err != nil {
			log.Warn("Rate limiter unavailable, allowing request", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			c.Next()
			return
		}
		count := incr.Val()

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Warn("Rate limit exceeded", map[string]interface{}{
				"key":   key,
				"count": count,
				"limit": cfg.MaxRequests,
			})
			errors.TooManyRequests(c, retryAfter)
			return
		}

		c.Next()
	}
}
