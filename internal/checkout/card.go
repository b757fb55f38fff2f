package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/payments"
)

// Card sheet results reported by the client.
const (
	ResultSuccess   = "success"
	ResultCancelled = "cancelled"
	ResultFailed    = "failed"
)

// NormalizeResult folds the processor SDK's result spellings into one of
// the three card results.
func NormalizeResult(r string) string {
	switch strings.ToLower(strings.TrimSpace(r)) {
	case "success", "succeeded", "completed":
		return ResultSuccess
	case "cancel", "canceled", "cancelled":
		return ResultCancelled
	}
	return ResultFailed
}

// PrepareCard requests the payment intent for the current attempt and
// opens the pay gate once the client secret is known.
func (o *Orchestrator) PrepareCard(ctx context.Context, id string) (*Session, error) {
	const op = "prepare_card"
	return o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StateCardFlow); err != nil {
			return err
		}
		if s.PayReady && s.ClientSecret != "" {
			return nil
		}
		if err := s.requireCustomer(op, false); err != nil {
			return err
		}
		if err := o.reprice(op, s); err != nil {
			return err
		}

		cents := s.Quote.AmountInCents
		req := payments.IntentRequest{
			Items:                s.Items,
			CustomerName:         s.Customer.Name,
			Address:              s.deliveryAddress(),
			Method:               s.Method,
			PaymentMethod:        s.PaymentMethod,
			Tax:                  s.TaxInput,
			Tip:                  s.TipInput,
			SavedPaymentMethodID: s.SavedMethodID,
			UserID:               s.UserID,
			Email:                s.Customer.Email,
			SaveCard:             s.SaveCard,
			AmountInCents:        &cents,
			OrderTime:            s.OrderTime,
		}
		resp, err := o.d.Intents.Create(ctx, req, s.AttemptID)
		if err != nil {
			log.Printf("❌ Payment intent for checkout %s: %v", s.ID, err)
			return network(op, err)
		}

		s.ClientSecret = resp.ClientSecret
		s.PaymentIntentID = resp.PaymentIntentID
		s.OrderID = resp.OrderID
		s.PayReady = resp.ClientSecret != ""
		log.Printf("💳 Checkout %s ready to pay %s", s.ID, resp.Amount)
		return nil
	})
}

// ConfirmCard applies the result of the client-side payment sheet.
// Cancelling leaves the checkout untouched; a failure can be retried with
// the same intent.
func (o *Orchestrator) ConfirmCard(ctx context.Context, id, result, reason string) (*Outcome, error) {
	const op = "confirm_card"

	switch NormalizeResult(result) {
	case ResultCancelled:
		s, err := o.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		log.Printf("⚠️ Card payment cancelled for checkout %s", id)
		return &Outcome{Session: s, Cancelled: true, Message: "Payment cancelled"}, nil
	case ResultFailed:
		if reason == "" {
			reason = "payment could not be completed"
		}
		log.Printf("❌ Card payment failed for checkout %s: %s", id, reason)
		return &Outcome{Message: reason}, network(op, fmt.Errorf("%w: %s", ErrPaymentFailed, reason))
	}

	s, err := o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StateCardFlow); err != nil {
			return err
		}
		if !s.PayReady || s.PaymentIntentID == "" {
			return conflict(op, ErrPayNotReady)
		}

		intent, err := o.d.Cards.Verify(ctx, s.PaymentIntentID)
		if err != nil {
			return network(op, err)
		}
		if !intent.Succeeded() {
			return network(op, fmt.Errorf("%w: %s", ErrPaymentIncomplete, intent.Status))
		}

		s.State = StateSubmitted

		// Only a card attached to a processor customer can be charged again.
		if s.UserID != "" && s.SavedMethodID == "" && intent.PaymentMethodID != "" && intent.CustomerID != "" && o.d.PaymentMethods != nil {
			saved, err := o.d.PaymentMethods.InsertPaymentMethod(ctx, models.SavedPaymentMethod{
				UserID:                s.UserID,
				StripePaymentMethodID: intent.PaymentMethodID,
				StripeCustomerID:      intent.CustomerID,
				Brand:                 intent.CardBrand,
				Last4:                 intent.CardLast4,
				CreatedAt:             o.now(),
			})
			if err != nil {
				log.Printf("⚠️ Recording card for %s: %v", s.UserID, err)
				return nil
			}
			s.PendingSavedMethodID = saved.ID
			s.PendingStripeMethod = intent.PaymentMethodID
			s.State = StateSaveCardDecision
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.complete(ctx, s)
	return &Outcome{Session: s, Navigate: s.State == StateSubmitted}, nil
}

// ResolveSaveCard answers the "keep this card?" prompt. Declining removes
// the record created on payment and detaches the card from the customer.
func (o *Orchestrator) ResolveSaveCard(ctx context.Context, id string, keep bool) (*Outcome, error) {
	const op = "save_card"
	s, err := o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StateSaveCardDecision); err != nil {
			return err
		}
		if !keep {
			if err := o.d.PaymentMethods.DeletePaymentMethod(ctx, s.UserID, s.PendingSavedMethodID); err != nil {
				return network(op, err)
			}
			if s.PendingStripeMethod != "" {
				if err := o.d.Cards.Detach(ctx, s.PendingStripeMethod); err != nil {
					log.Printf("⚠️ Detaching %s: %v", s.PendingStripeMethod, err)
				}
			}
			log.Printf("🧹 Declined card %s removed for %s", s.PendingSavedMethodID, s.UserID)
		}
		s.PendingSavedMethodID = ""
		s.PendingStripeMethod = ""
		s.State = StateSubmitted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Outcome{Session: s, Navigate: true}, nil
}
