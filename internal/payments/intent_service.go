package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/orders"
	"brewdrop_back_end/internal/pricing"
)

// OrderWriter persists order rows as one all-or-nothing batch.
type OrderWriter interface {
	InsertOrderRows(ctx context.Context, rows []models.OrderRow) error
	SetIntentStatus(ctx context.Context, paymentIntentID, status string) (int, error)
}

type PaymentMethodReader interface {
	GetPaymentMethod(ctx context.Context, userID, id string) (*models.SavedPaymentMethod, error)
}

// CustomerDirectory maps users to processor customers. FindProfile returns
// nil, nil when the user has no profile.
type CustomerDirectory interface {
	FindProfile(ctx context.Context, userID string) (*models.Profile, error)
	SetStripeCustomer(ctx context.Context, userID, customerID string) error
}

// Replays remembers responses per idempotency key.
type Replays interface {
	Reserve(ctx context.Context, key string) (cached []byte, fresh bool, err error)
	Complete(ctx context.Context, key string, response []byte) error
	Release(ctx context.Context, key string) error
}

type IntentService struct {
	gateway   Gateway
	orders    OrderWriter
	methods   PaymentMethodReader
	customers CustomerDirectory
	replays   Replays
	currency  string
	taxRate   float64
	now       func() time.Time
}

type IntentServiceConfig struct {
	Gateway   Gateway
	Orders    OrderWriter
	Methods   PaymentMethodReader
	Customers CustomerDirectory
	Replays   Replays
	Currency  string
	TaxRate   float64
}

func NewIntentService(cfg IntentServiceConfig) *IntentService {
	currency := cfg.Currency
	if currency == "" {
		currency = "cad"
	}
	return &IntentService{
		gateway:   cfg.Gateway,
		orders:    cfg.Orders,
		methods:   cfg.Methods,
		customers: cfg.Customers,
		replays:   cfg.Replays,
		currency:  currency,
		taxRate:   cfg.TaxRate,
		now:       time.Now,
	}
}

// Create charges for the cart: it creates a processor intent for the
// recomputed amount and inserts one pending row per item. A repeated key
// returns the first response without charging or inserting again.
func (s *IntentService) Create(ctx context.Context, req IntentRequest, idempotencyKey string) (*IntentResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	if idempotencyKey != "" && s.replays != nil {
		cached, fresh, err := s.replays.Reserve(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if !fresh {
			if cached == nil {
				return nil, ErrDuplicateRequest
			}
			var resp IntentResponse
			if err := json.Unmarshal(cached, &resp); err != nil {
				return nil, fmt.Errorf("idempotency replay: %w", err)
			}
			log.Printf("🔁 Replaying intent %s for key %s", resp.PaymentIntentID, idempotencyKey)
			return &resp, nil
		}
	}

	resp, err := s.create(ctx, req, idempotencyKey)
	if idempotencyKey != "" && s.replays != nil {
		if err != nil {
			if rerr := s.replays.Release(ctx, idempotencyKey); rerr != nil {
				log.Printf("⚠️ Releasing idempotency key %s: %v", idempotencyKey, rerr)
			}
		} else if body, merr := json.Marshal(resp); merr == nil {
			if cerr := s.replays.Complete(ctx, idempotencyKey, body); cerr != nil {
				log.Printf("⚠️ Storing idempotent response %s: %v", idempotencyKey, cerr)
			}
		}
	}
	return resp, err
}

func (s *IntentService) create(ctx context.Context, req IntentRequest, key string) (*IntentResponse, error) {
	in := pricing.Inputs{Tax: req.Tax, Tip: req.Tip, TaxRate: s.taxRate}
	if err := pricing.Validate(req.Items, in); err != nil {
		return nil, err
	}
	quote := pricing.NewQuote(req.Items, in)
	if req.AmountInCents != nil {
		diff := *req.AmountInCents - quote.AmountInCents
		if diff > 1 || diff < -1 {
			return nil, fmt.Errorf("%w: got %d, expected %d", ErrAmountMismatch, *req.AmountInCents, quote.AmountInCents)
		}
		quote.AmountInCents = *req.AmountInCents
	}

	params := IntentParams{
		AmountInCents:  quote.AmountInCents,
		Currency:       s.currency,
		IdempotencyKey: key,
		Metadata: map[string]string{
			"customer_name": req.CustomerName,
			"method":        string(req.Method),
		},
	}
	if req.UserID != "" {
		params.Metadata["user_id"] = req.UserID
	}

	if req.SavedPaymentMethodID != "" {
		if req.UserID == "" || s.methods == nil {
			return nil, ErrUnknownMethod
		}
		m, err := s.methods.GetPaymentMethod(ctx, req.UserID, req.SavedPaymentMethodID)
		if err != nil {
			return nil, fmt.Errorf("load saved payment method: %w", err)
		}
		if m == nil {
			return nil, ErrUnknownMethod
		}
		params.PaymentMethodID = m.StripePaymentMethodID
		params.CustomerID = m.StripeCustomerID
	} else if req.UserID != "" {
		customerID, err := s.customerFor(ctx, req)
		if err != nil {
			return nil, err
		}
		params.CustomerID = customerID
		params.SaveForLater = req.SaveCard && customerID != ""
	}

	intent, err := s.gateway.CreateIntent(ctx, params)
	if err != nil {
		log.Printf("❌ Stripe error: %v", err)
		return nil, err
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = models.PaymentCard
	}
	rows := orders.Build(req.Items, quote, orders.Group{
		CustomerName:    req.CustomerName,
		Address:         req.Address,
		Method:          req.Method,
		PaymentMethod:   paymentMethod,
		UserID:          req.UserID,
		OrderTime:       req.OrderTime,
		PaymentIntentID: intent.ID,
		Status:          models.RowStatusPending,
		CreatedAt:       s.now(),
	})
	if err := s.orders.InsertOrderRows(ctx, rows); err != nil {
		log.Printf("❌ Inserting pending rows for %s: %v", intent.ID, err)
		return nil, fmt.Errorf("insert order rows: %w", err)
	}

	log.Printf("📦 %d pending rows for intent %s (%s)", len(rows), intent.ID, pricing.FormatAmount(quote.Total))
	return &IntentResponse{
		ClientSecret:    intent.ClientSecret,
		Amount:          pricing.FormatAmount(pricing.CentsToAmount(quote.AmountInCents)),
		OrderID:         rows[0].ID.String(),
		PaymentIntentID: intent.ID,
	}, nil
}

// customerFor returns the processor customer of an authenticated user,
// creating it on first use. Users without a profile pay as guests.
func (s *IntentService) customerFor(ctx context.Context, req IntentRequest) (string, error) {
	if s.customers == nil {
		return "", nil
	}
	p, err := s.customers.FindProfile(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if p == nil {
		return "", nil
	}
	if p.StripeCustomerID != "" {
		return p.StripeCustomerID, nil
	}
	if !req.SaveCard {
		return "", nil
	}

	email := p.Email
	if email == "" {
		email = req.Email
	}
	id, err := s.gateway.CreateCustomer(ctx, req.UserID, email, p.Name)
	if err != nil {
		return "", err
	}
	if err := s.customers.SetStripeCustomer(ctx, req.UserID, id); err != nil {
		log.Printf("⚠️ Storing Stripe customer for %s: %v", req.UserID, err)
	}
	return id, nil
}

// Verify reports the processor's view of an intent.
func (s *IntentService) Verify(ctx context.Context, paymentIntentID string) (*Intent, error) {
	return s.gateway.RetrieveIntent(ctx, paymentIntentID)
}

func (s *IntentService) Detach(ctx context.Context, paymentMethodID string) error {
	return s.gateway.DetachPaymentMethod(ctx, paymentMethodID)
}

// Settle applies a processor outcome to the rows created for an intent.
func (s *IntentService) Settle(ctx context.Context, paymentIntentID string, succeeded bool) error {
	status := models.RowStatusAbandoned
	if succeeded {
		status = models.RowStatusPaid
	}
	n, err := s.orders.SetIntentStatus(ctx, paymentIntentID, status)
	if err != nil {
		return fmt.Errorf("settle %s: %w", paymentIntentID, err)
	}
	if n == 0 {
		return fmt.Errorf("settle %s: %w", paymentIntentID, ErrNoIntentRows)
	}
	log.Printf("📦 %d rows of %s marked %s", n, paymentIntentID, status)
	return nil
}
