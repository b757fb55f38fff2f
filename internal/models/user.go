package models

import "time"

type Profile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Provider  string    `json:"provider,omitempty"`

	StripeCustomerID string `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

// SavedPaymentMethod is a processor payment method remembered for a user.
type SavedPaymentMethod struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	StripePaymentMethodID string    `json:"stripe_payment_method_id"`
	StripeCustomerID      string    `json:"stripe_customer_id,omitempty"`
	Brand                 string    `json:"brand,omitempty"`
	Last4                 string    `json:"last4,omitempty"`
	IsDefault             bool      `json:"is_default"`
	CreatedAt             time.Time `json:"created_at"`
}

// Contact is captured for checkouts without a stored profile.
type Contact struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	OrderID   string    `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Rating struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id,omitempty"`
	Stars     int       `json:"stars"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
