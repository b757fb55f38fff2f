package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brewdrop_back_end/internal/models"

	"github.com/gocql/gocql"
)

// FindProfile returns nil, nil when the user has no profile.
func (s *Store) FindProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.session.Query(`SELECT user_id, name, email, phone, address, avatar_url, provider, stripe_customer_id, updated_at
		FROM profiles WHERE user_id = ?`, userID).WithContext(ctx).
		Scan(&p.UserID, &p.Name, &p.Email, &p.Phone, &p.Address, &p.AvatarURL, &p.Provider, &p.StripeCustomerID, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile writes the editable fields. The processor customer id is
// left alone.
func (s *Store) UpsertProfile(ctx context.Context, p models.Profile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	return s.session.Query(`UPDATE profiles SET name = ?, email = ?, phone = ?, address = ?, avatar_url = ?, provider = ?, updated_at = ?
		WHERE user_id = ?`, p.Name, p.Email, p.Phone, p.Address, p.AvatarURL, p.Provider, p.UpdatedAt, p.UserID).
		WithContext(ctx).Exec()
}

func (s *Store) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	return s.session.Query(`UPDATE profiles SET stripe_customer_id = ? WHERE user_id = ?`, customerID, userID).
		WithContext(ctx).Exec()
}

func (s *Store) SetAvatar(ctx context.Context, userID, url string) error {
	return s.session.Query(`UPDATE profiles SET avatar_url = ?, updated_at = ? WHERE user_id = ?`, url, time.Now(), userID).
		WithContext(ctx).Exec()
}

func (s *Store) InsertContact(ctx context.Context, c models.Contact) error {
	return s.session.Query(`INSERT INTO contacts (order_id, name, address, phone, email, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.OrderID, c.Name, c.Address, c.Phone, c.Email, c.CreatedAt).WithContext(ctx).Exec()
}

// InsertRating stores at most one rating per order.
func (s *Store) InsertRating(ctx context.Context, r models.Rating) error {
	applied, err := s.session.Query(`INSERT INTO ratings (order_id, user_id, stars, comment, created_at) VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`,
		r.OrderID, r.UserID, r.Stars, r.Comment, r.CreatedAt).WithContext(ctx).MapScanCAS(map[string]interface{}{})
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	if !applied {
		return ErrAlreadyRated
	}
	return nil
}
