package checkout

import (
	"context"

	"brewdrop_back_end/internal/cart"
	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/notify"
	"brewdrop_back_end/internal/payments"
)

type CartRegistry interface {
	Get(token string) (*cart.Store, error)
}

// ProfileFinder returns nil, nil when the user has no stored profile.
type ProfileFinder interface {
	FindProfile(ctx context.Context, userID string) (*models.Profile, error)
}

type ContactWriter interface {
	InsertContact(ctx context.Context, c models.Contact) error
}

type OrderWriter interface {
	InsertOrderRows(ctx context.Context, rows []models.OrderRow) error
}

type IntentCreator interface {
	Create(ctx context.Context, req payments.IntentRequest, idempotencyKey string) (*payments.IntentResponse, error)
}

// CardProcessor confirms charges and undoes the processor's eager card save.
type CardProcessor interface {
	Verify(ctx context.Context, paymentIntentID string) (*payments.Intent, error)
	Detach(ctx context.Context, paymentMethodID string) error
}

type ApprovalCreator interface {
	CreateOrder(ctx context.Context, amount string) (approvalURL string, err error)
}

type PaymentMethodStore interface {
	InsertPaymentMethod(ctx context.Context, m models.SavedPaymentMethod) (*models.SavedPaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, userID, id string) error
}

type Notifier interface {
	SendReceipt(ctx context.Context, r notify.Receipt) error
}

type Deps struct {
	Sessions       SessionStore
	Carts          CartRegistry
	Profiles       ProfileFinder
	Contacts       ContactWriter
	Orders         OrderWriter
	Intents        IntentCreator
	Cards          CardProcessor
	PayPal         ApprovalCreator
	PaymentMethods PaymentMethodStore
	Notifier       Notifier
}

type Options struct {
	TaxRate float64
	// URL fragments that mark the end of the PayPal approval surface.
	PayPalSuccessMarker string
	PayPalCancelMarker  string
}
