package database

import (
	"context"

	"brewdrop_back_end/internal/models"
)

// Repository is everything the services read and write. Store is the
// ScyllaDB implementation and MemoryStore the in-process one.
type Repository interface {
	InsertOrderRows(ctx context.Context, rows []models.OrderRow) error
	GetOrderRow(ctx context.Context, id string) (*models.OrderRow, error)
	ListSiblings(ctx context.Context, key models.GroupKey) ([]models.OrderRow, error)
	SetIntentStatus(ctx context.Context, paymentIntentID, status string) (int, error)

	FindProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
	SetStripeCustomer(ctx context.Context, userID, customerID string) error
	SetAvatar(ctx context.Context, userID, url string) error
	InsertContact(ctx context.Context, c models.Contact) error
	InsertRating(ctx context.Context, r models.Rating) error

	ListPaymentMethods(ctx context.Context, userID string) ([]models.SavedPaymentMethod, error)
	GetPaymentMethod(ctx context.Context, userID, id string) (*models.SavedPaymentMethod, error)
	InsertPaymentMethod(ctx context.Context, m models.SavedPaymentMethod) (*models.SavedPaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, userID, id string) error
	SetDefault(ctx context.Context, userID, id string) error
}

var (
	_ Repository = (*Store)(nil)
	_ Repository = (*MemoryStore)(nil)
)
