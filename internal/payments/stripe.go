package payments

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/customer"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/paymentmethod"
)

// Gateway is the card processor as seen by the checkout.
type Gateway interface {
	CreateIntent(ctx context.Context, p IntentParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
	CreateCustomer(ctx context.Context, userID, email, name string) (string, error)
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error
}

// StripeGateway talks to Stripe with the process-wide key set in main.
type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountInCents),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	if p.SaveForLater {
		params.SetupFutureUsage = stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession))
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	log.Printf("💳 PaymentIntent created: %s (%d %s)", pi.ID, p.AmountInCents, p.Currency)
	return fromStripe(pi), nil
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve payment intent %s: %w", id, err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, userID, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	if _, err := paymentmethod.Detach(paymentMethodID, params); err != nil {
		return fmt.Errorf("stripe: detach payment method %s: %w", paymentMethodID, err)
	}
	return nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	in := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
	}
	if pi.Customer != nil {
		in.CustomerID = pi.Customer.ID
	}
	if pm := pi.PaymentMethod; pm != nil {
		in.PaymentMethodID = pm.ID
		if pm.Card != nil {
			in.CardBrand = string(pm.Card.Brand)
			in.CardLast4 = pm.Card.Last4
		}
	}
	return in
}
