package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"brewdrop_back_end/internal/checkout"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	SessionTTL = 2 * time.Hour
	LockTTL    = 30 * time.Second
)

// Sessions stores checkout sessions as JSON with a sliding TTL.
type Sessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessions(rdb *redis.Client, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &Sessions{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "checkout:" + id }
func lockKey(id string) string    { return "checkout_lock:" + id }

func (s *Sessions) Load(ctx context.Context, id string) (*checkout.Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkout %s: %w", id, err)
	}
	var sess checkout.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout %s: %w", id, err)
	}
	return &sess, nil
}

func (s *Sessions) Save(ctx context.Context, sess *checkout.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), raw, s.ttl).Err()
}

// TryLock takes the per-session submission lock with SET NX. The lock
// expires by itself if the holder dies.
func (s *Sessions) TryLock(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, lockKey(id), token, LockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock checkout %s: %w", id, err)
	}
	if !ok {
		return nil, checkout.ErrSubmissionInFlight
	}
	return func() {
		if err := releaseScript.Run(context.Background(), s.rdb, []string{lockKey(id)}, token).Err(); err != nil {
			log.Printf("⚠️ Releasing checkout lock %s: %v", id, err)
		}
	}, nil
}
