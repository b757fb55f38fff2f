package checkout

import (
	"context"
	"log"
	"strings"

	"brewdrop_back_end/internal/pricing"
)

// PayPalStatus is the result of one navigation inside the approval surface.
type PayPalStatus string

const (
	PayPalPending   PayPalStatus = "pending"
	PayPalApproved  PayPalStatus = "approved"
	PayPalCancelled PayPalStatus = "cancelled"
)

// StartPayPal creates the remote order and returns the approval URL to
// display. Funds are not captured.
func (o *Orchestrator) StartPayPal(ctx context.Context, id string) (*Session, error) {
	const op = "start_paypal"
	return o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StatePayPalFlow); err != nil {
			return err
		}
		if s.ApprovalURL != "" {
			return nil
		}
		if err := o.reprice(op, s); err != nil {
			return err
		}

		amount := pricing.FormatAmount(pricing.CentsToAmount(s.Quote.AmountInCents))
		url, err := o.d.PayPal.CreateOrder(ctx, amount)
		if err != nil {
			log.Printf("❌ PayPal order for checkout %s: %v", s.ID, err)
			return network(op, err)
		}
		s.ApprovalURL = url
		s.PayPalResult = string(PayPalPending)
		return nil
	})
}

// PayPalNavigation inspects a URL the approval surface navigated to. The
// success and cancel markers close the surface; anything else keeps it open.
func (o *Orchestrator) PayPalNavigation(ctx context.Context, id, url string) (PayPalStatus, *Session, error) {
	const op = "paypal_navigation"

	status := PayPalPending
	switch {
	case strings.Contains(url, o.opts.PayPalSuccessMarker):
		status = PayPalApproved
	case strings.Contains(url, o.opts.PayPalCancelMarker):
		status = PayPalCancelled
	}
	if status == PayPalPending {
		s, err := o.Get(ctx, id)
		return status, s, err
	}

	s, err := o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StatePayPalFlow); err != nil {
			return err
		}
		if s.ApprovalURL == "" {
			return conflict(op, ErrPayNotReady)
		}
		s.PayPalResult = string(status)
		if status == PayPalCancelled {
			s.ApprovalURL = ""
			log.Printf("⚠️ PayPal approval cancelled for checkout %s", s.ID)
			return nil
		}
		log.Printf("💳 PayPal approval received for checkout %s", s.ID)
		return nil
	})
	return status, s, err
}
