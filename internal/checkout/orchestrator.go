// Package checkout drives an order from a finished cart to a submitted
// order: method choice, contact capture for guests, then one of the card,
// cash or PayPal payment flows.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/notify"
	"brewdrop_back_end/internal/pricing"

	"github.com/google/uuid"
)

type Orchestrator struct {
	d    Deps
	opts Options
	now  func() time.Time
}

// Outcome is what the app should do after a submission step.
type Outcome struct {
	Session   *Session `json:"session"`
	Navigate  bool     `json:"navigate"`
	Cancelled bool     `json:"cancelled"`
	Message   string   `json:"message,omitempty"`
}

func New(d Deps, opts Options) *Orchestrator {
	if opts.TaxRate <= 0 {
		opts.TaxRate = pricing.DefaultTaxRate
	}
	if opts.PayPalSuccessMarker == "" {
		opts.PayPalSuccessMarker = "/paypal/success"
	}
	if opts.PayPalCancelMarker == "" {
		opts.PayPalCancelMarker = "/paypal/cancel"
	}
	return &Orchestrator{d: d, opts: opts, now: time.Now}
}

// Begin opens a checkout for the cart behind cartToken. An empty or unknown
// cart fails with ErrEmptyCart/ErrUnknownCart; the app returns to the menu.
func (o *Orchestrator) Begin(ctx context.Context, cartToken, userID string) (*Session, error) {
	const op = "begin"

	items, err := o.cartItems(cartToken)
	if err != nil {
		return nil, validation(op, err)
	}

	now := o.now()
	s := &Session{
		ID:        uuid.NewString(),
		State:     StateIdle,
		CartToken: cartToken,
		Items:     items,
		UserID:    userID,
		AttemptID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if userID != "" && o.d.Profiles != nil {
		p, err := o.d.Profiles.FindProfile(ctx, userID)
		if err != nil {
			log.Printf("❌ Loading profile %s: %v", userID, err)
			return nil, network(op, err)
		}
		if p != nil {
			s.HasProfile = true
			s.Customer = Customer{Name: p.Name, Address: p.Address, Phone: p.Phone, Email: p.Email}
		}
	}

	s.State = StateMethodSelection
	if err := o.d.Sessions.Save(ctx, s); err != nil {
		return nil, network(op, err)
	}
	log.Printf("🛒 Checkout %s opened (%d items, profile=%v)", s.ID, len(items), s.HasProfile)
	return s, nil
}

func (o *Orchestrator) Get(ctx context.Context, id string) (*Session, error) {
	s, err := o.d.Sessions.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, validation("get", err)
		}
		return nil, network("get", err)
	}
	return s, nil
}

// SelectMethod records pickup/delivery and customer details. Users without
// an authenticated session and stored profile go through contact capture.
func (o *Orchestrator) SelectMethod(ctx context.Context, id string, method models.Method, c Customer, orderTime *string) (*Session, error) {
	const op = "select_method"
	return o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StateMethodSelection, StateContactCapture, StatePaymentMethodSelection,
			StateCardFlow, StateCashFlow, StatePayPalFlow); err != nil {
			return err
		}
		if !method.Valid() {
			return validation(op, ErrInvalidMethod)
		}

		s.Method = method
		s.OrderTime = orderTime
		mergeCustomer(&s.Customer, c)
		s.resetPayment()

		if s.needsContact() {
			s.State = StateContactCapture
		} else {
			s.State = StatePaymentMethodSelection
		}
		return nil
	})
}

// CaptureContact collects the guest's phone (required) and email (optional).
func (o *Orchestrator) CaptureContact(ctx context.Context, id, phone, email string) (*Session, error) {
	const op = "capture_contact"
	return o.mutate(ctx, op, id, func(s *Session) error {
		if err := expect(op, s, StateContactCapture, StatePaymentMethodSelection); err != nil {
			return err
		}
		phone = strings.TrimSpace(phone)
		email = strings.TrimSpace(email)
		if phone == "" {
			return validation(op, ErrPhoneRequired)
		}
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return validation(op, ErrInvalidEmail)
			}
		}

		s.Customer.Phone = phone
		s.Customer.Email = email
		s.ContactCaptured = true
		s.State = StatePaymentMethodSelection
		return nil
	})
}

// Selection is the payment choice made on the summary screen.
type Selection struct {
	PaymentMethod models.PaymentMethod
	Tax           *float64
	Tip           *float64
	SavedMethodID string
	SaveCard      bool
}

// SelectPaymentMethod prices the current cart and enters the chosen flow.
// Every selection starts a new submission attempt.
func (o *Orchestrator) SelectPaymentMethod(ctx context.Context, id string, sel Selection) (*Session, error) {
	const op = "select_payment"
	return o.mutate(ctx, op, id, func(s *Session) error {
		if s.State == StateContactCapture {
			return validation(op, ErrContactRequired)
		}
		if err := expect(op, s, StatePaymentMethodSelection, StateCardFlow, StateCashFlow, StatePayPalFlow); err != nil {
			return err
		}

		var next State
		switch sel.PaymentMethod {
		case models.PaymentCard, models.PaymentApplePay:
			next = StateCardFlow
		case models.PaymentCash:
			next = StateCashFlow
		case models.PaymentPayPal:
			next = StatePayPalFlow
		default:
			return validation(op, ErrInvalidPayment)
		}

		s.TaxInput = sel.Tax
		s.TipInput = sel.Tip
		if err := o.reprice(op, s); err != nil {
			return err
		}
		s.PaymentMethod = sel.PaymentMethod
		s.resetPayment()
		if s.UserID != "" {
			s.SavedMethodID = sel.SavedMethodID
			s.SaveCard = sel.SaveCard && sel.SavedMethodID == ""
		}
		s.State = next
		return nil
	})
}

// mutate runs fn on the locked session and saves it when fn succeeds.
func (o *Orchestrator) mutate(ctx context.Context, op, id string, fn func(s *Session) error) (*Session, error) {
	release, err := o.d.Sessions.TryLock(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSubmissionInFlight) {
			return nil, conflict(op, err)
		}
		return nil, network(op, err)
	}
	defer release()

	s, err := o.d.Sessions.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, validation(op, err)
		}
		return nil, network(op, err)
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.UpdatedAt = o.now()
	if err := o.d.Sessions.Save(ctx, s); err != nil {
		return nil, network(op, err)
	}
	return s, nil
}

func (o *Orchestrator) cartItems(token string) ([]models.CartItem, error) {
	store, err := o.d.Carts.Get(token)
	if err != nil {
		return nil, ErrUnknownCart
	}
	items := store.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}

// reprice reloads the cart and prices it with the tax and tip chosen for
// the current attempt.
func (o *Orchestrator) reprice(op string, s *Session) error {
	items, err := o.cartItems(s.CartToken)
	if err != nil {
		return validation(op, err)
	}
	in := pricing.Inputs{Tax: s.TaxInput, Tip: s.TipInput, TaxRate: o.opts.TaxRate}
	if err := pricing.Validate(items, in); err != nil {
		return validation(op, err)
	}
	s.Items = items
	s.Quote = pricing.NewQuote(items, in)
	return nil
}

// complete runs the shared tail of a submitted order once its session is
// saved: take the ordered lines out of the cart, record guest contact
// details and send the receipt.
func (o *Orchestrator) complete(ctx context.Context, s *Session) {
	o.removeOrdered(s)

	if !s.HasProfile && o.d.Contacts != nil {
		contact := models.Contact{
			Name:      s.Customer.Name,
			Address:   s.deliveryAddress(),
			Phone:     s.Customer.Phone,
			Email:     s.Customer.Email,
			OrderID:   s.OrderID,
			CreatedAt: o.now(),
		}
		if err := o.d.Contacts.InsertContact(ctx, contact); err != nil {
			log.Printf("❌ Saving contact for order %s: %v", s.OrderID, err)
		}
	}

	if s.Customer.Email != "" && o.d.Notifier != nil {
		r := notify.Receipt{
			To:       s.Customer.Email,
			Customer: s.Customer.Name,
			OrderID:  s.OrderID,
			Method:   s.Method,
			Payment:  s.PaymentMethod,
			Items:    s.Items,
			Quote:    s.Quote,
		}
		go func() {
			sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := o.d.Notifier.SendReceipt(sendCtx, r); err != nil {
				log.Printf("❌ Sending receipt for %s: %v", r.OrderID, err)
			}
		}()
	}
	log.Printf("📦 Order %s submitted (%s, %s)", s.OrderID, s.Method, s.PaymentMethod)
}

// removeOrdered takes the session's items out of the live cart. Lines
// added, or quantity added, after the order was priced stay in the cart.
func (o *Orchestrator) removeOrdered(s *Session) {
	store, err := o.d.Carts.Get(s.CartToken)
	if err != nil {
		return
	}
	live := make(map[string]int, store.Len())
	for _, it := range store.Items() {
		live[it.ID] = it.Quantity
	}
	for _, it := range s.Items {
		qty, ok := live[it.ID]
		if !ok {
			continue
		}
		if err := store.UpdateQuantity(it.ID, qty-it.Quantity); err != nil {
			log.Printf("⚠️ Clearing %s from cart %s: %v", it.ID, s.CartToken, err)
		}
	}
}

func expect(op string, s *Session, allowed ...State) error {
	for _, st := range allowed {
		if s.State == st {
			return nil
		}
	}
	return conflict(op, fmt.Errorf("%w: %s", ErrWrongState, s.State))
}

func mergeCustomer(dst *Customer, src Customer) {
	if v := strings.TrimSpace(src.Name); v != "" {
		dst.Name = v
	}
	if v := strings.TrimSpace(src.Address); v != "" {
		dst.Address = v
	}
	if v := strings.TrimSpace(src.Phone); v != "" {
		dst.Phone = v
	}
	if v := strings.TrimSpace(src.Email); v != "" {
		dst.Email = v
	}
}

func (s *Session) needsContact() bool {
	return !(s.UserID != "" && s.HasProfile) && !s.ContactCaptured
}

func (s *Session) deliveryAddress() string {
	if s.Method == models.MethodDelivery {
		return s.Customer.Address
	}
	return models.PickupAddress
}

// resetPayment drops everything tied to the previous submission attempt.
func (s *Session) resetPayment() {
	s.AttemptID = uuid.NewString()
	s.ClientSecret = ""
	s.PaymentIntentID = ""
	s.PayReady = false
	s.ApprovalURL = ""
	s.PayPalResult = ""
	s.SavedMethodID = ""
	s.SaveCard = false
}

func (s *Session) requireCustomer(op string, needPhone bool) error {
	if strings.TrimSpace(s.Customer.Name) == "" {
		return missing(op, "name")
	}
	if s.Method == models.MethodDelivery && strings.TrimSpace(s.Customer.Address) == "" {
		return missing(op, "address")
	}
	if needPhone && strings.TrimSpace(s.Customer.Phone) == "" {
		return missing(op, "phone")
	}
	return nil
}
