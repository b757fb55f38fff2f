package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"brewdrop_back_end/internal/models"

	"github.com/redis/go-redis/v9"
)

const ProfileCacheTTL = 5 * time.Minute

// ProfileBackend is the durable profile store behind the cache.
type ProfileBackend interface {
	FindProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
	SetStripeCustomer(ctx context.Context, userID, customerID string) error
	SetAvatar(ctx context.Context, userID, url string) error
}

// Profiles is a read-through Redis cache in front of a ProfileBackend.
// Writes go to the backend and invalidate the cached entry.
type Profiles struct {
	rdb     *redis.Client
	backend ProfileBackend
}

func NewProfiles(rdb *redis.Client, backend ProfileBackend) *Profiles {
	return &Profiles{rdb: rdb, backend: backend}
}

func profileKey(userID string) string { return "profile:" + userID }

// cachedProfile keeps the fields that Profile hides from JSON.
type cachedProfile struct {
	models.Profile
	StripeCustomerID string `json:"stripe_customer_id"`
	Missing          bool   `json:"missing,omitempty"`
}

func (p *Profiles) FindProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if raw, err := p.rdb.Get(ctx, profileKey(userID)).Bytes(); err == nil {
		var c cachedProfile
		if json.Unmarshal(raw, &c) == nil {
			if c.Missing {
				return nil, nil
			}
			c.Profile.StripeCustomerID = c.StripeCustomerID
			return &c.Profile, nil
		}
	}

	prof, err := p.backend.FindProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := cachedProfile{Missing: prof == nil}
	if prof != nil {
		c.Profile = *prof
		c.StripeCustomerID = prof.StripeCustomerID
	}
	if raw, err := json.Marshal(c); err == nil {
		if err := p.rdb.Set(ctx, profileKey(userID), raw, ProfileCacheTTL).Err(); err != nil {
			log.Printf("⚠️ Caching profile %s: %v", userID, err)
		}
	}
	return prof, nil
}

func (p *Profiles) UpsertProfile(ctx context.Context, prof models.Profile) error {
	defer p.invalidate(ctx, prof.UserID)
	return p.backend.UpsertProfile(ctx, prof)
}

func (p *Profiles) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	defer p.invalidate(ctx, userID)
	return p.backend.SetStripeCustomer(ctx, userID, customerID)
}

func (p *Profiles) SetAvatar(ctx context.Context, userID, url string) error {
	defer p.invalidate(ctx, userID)
	return p.backend.SetAvatar(ctx, userID, url)
}

func (p *Profiles) invalidate(ctx context.Context, userID string) {
	p.rdb.Del(ctx, profileKey(userID))
}
