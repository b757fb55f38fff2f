package payments

import (
	"errors"

	"brewdrop_back_end/internal/models"
)

var (
	ErrNoItems          = errors.New("no items to charge")
	ErrAmountMismatch   = errors.New("amount does not match order total")
	ErrUnknownMethod    = errors.New("saved payment method not found")
	ErrDuplicateRequest = errors.New("request with this idempotency key is still in progress")
	ErrNoIntentRows     = errors.New("no order rows for payment intent")
)

// IntentRequest is the body of a payment-intent creation call.
type IntentRequest struct {
	Items                []models.CartItem    `json:"items"`
	CustomerName         string               `json:"customerName"`
	Address              string               `json:"address"`
	Method               models.Method        `json:"method"`
	PaymentMethod        models.PaymentMethod `json:"paymentMethod,omitempty"`
	Tax                  *float64             `json:"tax"`
	Tip                  *float64             `json:"tip"`
	SavedPaymentMethodID string               `json:"savedPaymentMethodId,omitempty"`
	UserID               string               `json:"userId,omitempty"`
	Email                string               `json:"email,omitempty"`
	SaveCard             bool                 `json:"saveCard,omitempty"`
	AmountInCents        *int64               `json:"amountInCents,omitempty"`
	OrderTime            *string              `json:"orderTime,omitempty"`
}

type IntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	Amount          string `json:"amount"`
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// Intent is the subset of a processor payment intent the service cares about.
type Intent struct {
	ID              string
	ClientSecret    string
	Status          string
	Amount          int64
	CustomerID      string
	PaymentMethodID string
	CardBrand       string
	CardLast4       string
}

func (i Intent) Succeeded() bool {
	return i.Status == "succeeded"
}

type IntentParams struct {
	AmountInCents   int64
	Currency        string
	CustomerID      string
	PaymentMethodID string
	SaveForLater    bool
	Metadata        map[string]string
	IdempotencyKey  string
}
