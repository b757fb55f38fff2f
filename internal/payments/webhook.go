package payments

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

// Settlement is what a webhook event means for the rows of an intent.
type Settlement struct {
	PaymentIntentID string
	Succeeded       bool
}

// ParseWebhook verifies and decodes a Stripe event. Events that do not
// settle a payment intent return a nil Settlement. An empty secret skips
// signature checks (local testing only).
func ParseWebhook(payload []byte, signature, secret string) (*stripe.Event, *Settlement, error) {
	var event stripe.Event
	if secret == "" {
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, nil, fmt.Errorf("invalid event JSON: %w", err)
		}
	} else {
		var err error
		event, err = webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("invalid signature: %w", err)
		}
	}

	var succeeded bool
	switch event.Type {
	case "payment_intent.succeeded":
		succeeded = true
	case "payment_intent.canceled", "payment_intent.payment_failed":
		succeeded = false
	default:
		return &event, nil, nil
	}

	if event.Data == nil {
		return &event, nil, fmt.Errorf("event %s has no data", event.ID)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return &event, nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &event, &Settlement{PaymentIntentID: pi.ID, Succeeded: succeeded}, nil
}
