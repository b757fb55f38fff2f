package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	APIMaxRequests      = 100 // per minute, per IP
	CheckoutMaxRequests = 10  // submissions per minute, per client

	APICooldown = 1 * time.Minute
)

// RateLimiter counts requests in fixed one-minute windows in Redis.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// APIRateLimit limits all requests per IP.
func (l *RateLimiter) APIRateLimit() gin.HandlerFunc {
	return l.limit("api_requests:", APIMaxRequests, func(c *gin.Context) string { return c.ClientIP() })
}

// CheckoutRateLimit limits payment submissions per user, or per IP for
// guests.
func (l *RateLimiter) CheckoutRateLimit() gin.HandlerFunc {
	return l.limit("checkout_requests:", CheckoutMaxRequests, func(c *gin.Context) string {
		if id := c.GetString("user_id"); id != "" {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	})
}

func (l *RateLimiter) limit(prefix string, max int, who func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		key := prefix + who(c)

		n, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			log.Printf("⚠️ Rate limit unavailable for %s: %v", key, err)
			c.Next()
			return
		}
		if n == 1 {
			l.rdb.Expire(ctx, key, APICooldown)
		}

		requests := int(n)
		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		if requests > max {
			ttl := l.rdb.TTL(ctx, key).Val()
			retry := int(ttl.Seconds())
			if retry <= 0 {
				retry = int(APICooldown.Seconds())
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests, try again shortly",
				"retry_after": retry,
			})
			return
		}
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max-requests))
		c.Next()
	}
}
