package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds rate limit middleware configuration.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per window.
	Requests int
	// Window is the rate limit window.
	Window time.Duration
	// KeyPrefix namespaces the Redis counters.
	KeyPrefix string
}

// RateLimit returns a fixed-window rate limiter keyed by client IP.
// If the Redis client is nil the limiter is a no-op.
func RateLimit(redis goredis.UniversalClient, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Requests <= 0 {
		cfg.Requests = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ratelimit"
	}

	return func(c *gin.Context) {
		if redis == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		window := time.Now().Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("%s:%s:%d", cfg.KeyPrefix, c.ClientIP(), window)

		count, err := redis.Incr(ctx, key).Result()
		if err != nil {
			// Fail open on Redis errors
			c.Next()
			return
		}
		if count == 1 {
			redis.Expire(ctx, key, cfg.Window)
		}

		if count > int64(cfg.Requests) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"code":  "RATE_LIMITED",
			})
			return
		}

		c.Next()
	}
}
