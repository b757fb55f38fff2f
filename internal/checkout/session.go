package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/pricing"
)

type State string

const (
	StateIdle                   State = "idle"
	StateMethodSelection        State = "method_selection"
	StateContactCapture         State = "contact_capture"
	StatePaymentMethodSelection State = "payment_method_selection"
	StateCardFlow               State = "card_flow"
	StateCashFlow               State = "cash_flow"
	StatePayPalFlow             State = "paypal_flow"
	StateSaveCardDecision       State = "save_card_decision"
	StateSubmitted              State = "submitted"
)

type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Session is the serializable state of one checkout.
type Session struct {
	ID        string            `json:"id"`
	State     State             `json:"state"`
	CartToken string            `json:"cart_token"`
	Items     []models.CartItem `json:"items"`

	UserID          string `json:"user_id,omitempty"`
	HasProfile      bool   `json:"has_profile"`
	ContactCaptured bool   `json:"contact_captured"`

	Method        models.Method        `json:"method,omitempty"`
	Customer      Customer             `json:"customer"`
	PaymentMethod models.PaymentMethod `json:"payment_method,omitempty"`
	OrderTime     *string              `json:"order_time,omitempty"`

	TaxInput *float64      `json:"tax_input,omitempty"`
	TipInput *float64      `json:"tip_input,omitempty"`
	Quote    pricing.Quote `json:"quote"`

	// AttemptID is the idempotency token of the current submission attempt.
	AttemptID string `json:"attempt_id"`

	SavedMethodID        string `json:"saved_method_id,omitempty"`
	SaveCard             bool   `json:"save_card"`
	ClientSecret         string `json:"client_secret,omitempty"`
	PaymentIntentID      string `json:"payment_intent_id,omitempty"`
	PayReady             bool   `json:"pay_ready"`
	PendingSavedMethodID string `json:"pending_saved_method_id,omitempty"`
	PendingStripeMethod  string `json:"pending_stripe_method,omitempty"`

	ApprovalURL  string `json:"approval_url,omitempty"`
	PayPalResult string `json:"paypal_result,omitempty"`

	OrderID   string    `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore persists sessions. TryLock serializes mutations of one
// session and fails fast with ErrSubmissionInFlight when already held.
type SessionStore interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	TryLock(ctx context.Context, id string) (release func(), err error)
}

// MemorySessions keeps sessions in process memory.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]bool
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		sessions: make(map[string][]byte),
		locks:    make(map[string]bool),
	}
}

func (m *MemorySessions) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	raw, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemorySessions) Save(_ context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemorySessions) TryLock(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[id] {
		return nil, ErrSubmissionInFlight
	}
	m.locks[id] = true
	return func() {
		m.mu.Lock()
		delete(m.locks, id)
		m.mu.Unlock()
	}, nil
}
