package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const IdempotencyTTL = 24 * time.Hour

// pending marks a key whose first request has not finished yet.
const pending = "\x00pending"

// Replays records the response of the first request per idempotency key.
type Replays struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewReplays(rdb *redis.Client, ttl time.Duration) *Replays {
	if ttl <= 0 {
		ttl = IdempotencyTTL
	}
	return &Replays{rdb: rdb, ttl: ttl}
}

func replayKey(key string) string { return "idempotency:" + key }

// Reserve claims key. fresh is true for the first caller; later callers get
// the stored response, or nil while the first request is still running.
func (r *Replays) Reserve(ctx context.Context, key string) ([]byte, bool, error) {
	ok, err := r.rdb.SetNX(ctx, replayKey(key), pending, r.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("reserve %s: %w", key, err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := r.rdb.Get(ctx, replayKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return r.Reserve(ctx, key)
	}
	if err != nil {
		return nil, false, fmt.Errorf("replay %s: %w", key, err)
	}
	if string(raw) == pending {
		return nil, false, nil
	}
	return raw, false, nil
}

func (r *Replays) Complete(ctx context.Context, key string, response []byte) error {
	return r.rdb.Set(ctx, replayKey(key), response, r.ttl).Err()
}

func (r *Replays) Release(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, replayKey(key)).Err()
}
