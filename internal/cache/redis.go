// Package cache keeps short-lived state in Redis: checkout sessions,
// idempotency records and cached profiles.
package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects a pooled client and checks it with a ping.
func NewRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_HOST not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot reach redis: %w", err)
	}
	log.Println("✅ Redis connected")
	return client, nil
}

// releaseScript deletes a key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
