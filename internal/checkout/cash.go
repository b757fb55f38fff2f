package checkout

import (
	"context"
	"log"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/orders"
)

// SubmitCash places a cash order. Contact fields and the policy
// acceptance are checked before anything is written.
func (o *Orchestrator) SubmitCash(ctx context.Context, id string, policyAccepted bool) (*Outcome, error) {
	const op = "submit_cash"
	s, err := o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StateCashFlow); err != nil {
			return err
		}
		if err := s.requireCustomer(op, true); err != nil {
			return err
		}
		if !policyAccepted {
			return validation(op, ErrPolicyNotAccepted)
		}

		if err := o.reprice(op, s); err != nil {
			return err
		}

		rows := orders.Build(s.Items, s.Quote, orders.Group{
			CustomerName:  s.Customer.Name,
			Address:       s.deliveryAddress(),
			Method:        s.Method,
			PaymentMethod: models.PaymentCash,
			UserID:        s.UserID,
			OrderTime:     s.OrderTime,
			Status:        models.RowStatusPlaced,
			CreatedAt:     o.now(),
		})
		if err := o.d.Orders.InsertOrderRows(ctx, rows); err != nil {
			log.Printf("❌ Inserting cash order for checkout %s: %v", s.ID, err)
			return network(op, err)
		}

		s.OrderID = rows[0].ID.String()
		s.State = StateSubmitted
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.complete(ctx, s)
	return &Outcome{Session: s, Navigate: true}, nil
}
