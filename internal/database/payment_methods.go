package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"brewdrop_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyRated = errors.New("order already rated")
)

// A user's default method lives in payment_method_defaults. That row is
// only written with lightweight transactions, so two concurrent first
// inserts agree on one default.

func (s *Store) ListPaymentMethods(ctx context.Context, userID string) ([]models.SavedPaymentMethod, error) {
	iter := s.session.Query(`SELECT id, stripe_payment_method_id, stripe_customer_id, brand, last4, created_at
		FROM payment_methods WHERE user_id = ?`, userID).WithContext(ctx).Iter()

	var out []models.SavedPaymentMethod
	m := models.SavedPaymentMethod{UserID: userID}
	for iter.Scan(&m.ID, &m.StripePaymentMethodID, &m.StripeCustomerID, &m.Brand, &m.Last4, &m.CreatedAt) {
		out = append(out, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defaultID, err := s.defaultMethod(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortMethods(out)
	markDefault(out, defaultID)
	return out, nil
}

// GetPaymentMethod returns nil, nil when the method does not exist.
func (s *Store) GetPaymentMethod(ctx context.Context, userID, id string) (*models.SavedPaymentMethod, error) {
	methods, err := s.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range methods {
		if methods[i].ID == id {
			return &methods[i], nil
		}
	}
	return nil, nil
}

// InsertPaymentMethod stores a new method. The first method of a user
// becomes the default.
func (s *Store) InsertPaymentMethod(ctx context.Context, m models.SavedPaymentMethod) (*models.SavedPaymentMethod, error) {
	m.ID = uuid.NewString()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	err := s.session.Query(`INSERT INTO payment_methods (user_id, id, stripe_payment_method_id, stripe_customer_id, brand, last4, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, m.UserID, m.ID, m.StripePaymentMethodID, m.StripeCustomerID, m.Brand, m.Last4, m.CreatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		return nil, fmt.Errorf("insert payment method: %w", err)
	}

	claimed, err := cas(s.session.Query(`INSERT INTO payment_method_defaults (user_id, method_id) VALUES (?, ?) IF NOT EXISTS`,
		m.UserID, m.ID).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("claim default payment method: %w", err)
	}
	m.IsDefault = claimed
	return &m, nil
}

// DeletePaymentMethod removes a method; when it was the default, the most
// recent remaining method takes over.
func (s *Store) DeletePaymentMethod(ctx context.Context, userID, id string) error {
	m, err := s.GetPaymentMethod(ctx, userID, id)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}
	if err := s.session.Query(`DELETE FROM payment_methods WHERE user_id = ? AND id = ?`, userID, id).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	if !m.IsDefault {
		return nil
	}
	rest, err := s.ListPaymentMethods(ctx, userID)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		_, err := cas(s.session.Query(`DELETE FROM payment_method_defaults WHERE user_id = ? IF method_id = ?`, userID, id).WithContext(ctx))
		if err != nil {
			return fmt.Errorf("clear default payment method: %w", err)
		}
		return nil
	}
	return s.SetDefault(ctx, userID, rest[len(rest)-1].ID)
}

// SetDefault points the user's default at id.
func (s *Store) SetDefault(ctx context.Context, userID, id string) error {
	m, err := s.GetPaymentMethod(ctx, userID, id)
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}

	// The row may vanish or appear between the two statements; one retry
	// settles it.
	for attempt := 0; attempt < 2; attempt++ {
		applied, err := cas(s.session.Query(`UPDATE payment_method_defaults SET method_id = ? WHERE user_id = ? IF EXISTS`, id, userID).WithContext(ctx))
		if err != nil {
			return fmt.Errorf("set default payment method: %w", err)
		}
		if applied {
			return nil
		}
		applied, err = cas(s.session.Query(`INSERT INTO payment_method_defaults (user_id, method_id) VALUES (?, ?) IF NOT EXISTS`, userID, id).WithContext(ctx))
		if err != nil {
			return fmt.Errorf("set default payment method: %w", err)
		}
		if applied {
			return nil
		}
	}
	return fmt.Errorf("set default payment method for %s: concurrent update", userID)
}

func (s *Store) defaultMethod(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.session.Query(`SELECT method_id FROM payment_method_defaults WHERE user_id = ?`, userID).
		WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load default payment method: %w", err)
	}
	return id, nil
}

func cas(q *gocql.Query) (bool, error) {
	return q.MapScanCAS(map[string]interface{}{})
}

// markDefault flags defaultID among ms, sorted oldest first. When defaultID
// names none of them the oldest method is the default, so a non-empty list
// always has exactly one.
func markDefault(ms []models.SavedPaymentMethod, defaultID string) {
	found := false
	for i := range ms {
		ms[i].IsDefault = ms[i].ID == defaultID
		found = found || ms[i].IsDefault
	}
	if !found && len(ms) > 0 {
		ms[0].IsDefault = true
	}
}

func sortMethods(ms []models.SavedPaymentMethod) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].CreatedAt.Before(ms[j].CreatedAt) })
}
