package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zahidhasann88/workspace-backend/pkg/logger"
)

// RateLimiter implements Redis-backed fixed-window rate limiting, keyed
// by authenticated user when available and by client IP otherwise.
type RateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

// NewRateLimiter creates a rate limiter allowing `requests` per `window`
func NewRateLimiter(client *redis.Client, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:   client,
		requests: requests,
		window:   window,
	}
}

// Middleware returns a Gin middleware enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var identifier string
		if userID, exists := c.Get("user_id"); exists {
			identifier = fmt.Sprintf("user:%v", userID)
		} else {
			identifier = fmt.Sprintf("ip:%s", c.ClientIP())
		}

		allowed, remaining, resetAt, err := rl.check(c.Request.Context(), identifier)
		if err != nil {
			// Fail-open: an unreachable Redis must not take requests down
			logger.Warn("rate limit check failed, allowing request",
				zap.String("identifier", identifier),
				zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     "Rate limit exceeded",
				"limit":     rl.requests,
				"remaining": remaining,
				"reset_at":  resetAt,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) check(ctx context.Context, identifier string) (bool, int, int64, error) {
	key := fmt.Sprintf("ratelimit:%s", identifier)

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// First hit of a window starts the clock
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	ttl, err := rl.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	if ttl < 0 {
		ttl = rl.window
	}

	remaining := rl.requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return int(count) <= rl.requests, remaining, time.Now().Add(ttl).Unix(), nil
}
