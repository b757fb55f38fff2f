package checkout

import (
	"errors"
	"fmt"
)

// Kind classifies failures the way the app surfaces them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: missing fields or acceptance; no network call was made.
	KindValidation
	// KindNetwork: processor, store or OAuth failure; the user re-triggers.
	KindNetwork
	// KindCancelled: the user backed out; not an error state.
	KindCancelled
	// KindPartialData: expected data is missing, e.g. an order not found on poll.
	KindPartialData
	// KindConflict: the operation does not fit the current checkout state.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindCancelled:
		return "cancelled"
	case KindPartialData:
		return "partial_data"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrUnknownCart        = errors.New("cart not found")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrInvalidMethod      = errors.New("method must be pickup or delivery")
	ErrInvalidPayment     = errors.New("unsupported payment method")
	ErrMissingField       = errors.New("missing required field")
	ErrPhoneRequired      = errors.New("phone number is required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrContactRequired    = errors.New("contact details are required before payment")
	ErrPolicyNotAccepted  = errors.New("cash policy must be accepted")
	ErrPayNotReady        = errors.New("payment sheet is not ready")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrPaymentIncomplete  = errors.New("payment has not completed")
	ErrSubmissionInFlight = errors.New("a submission for this checkout is already in progress")
	ErrWrongState         = errors.New("operation not allowed in current checkout state")
)

// Error is a checkout failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkout %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func conflict(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

func missing(op, field string) error {
	return validation(op, fmt.Errorf("%w: %s", ErrMissingField, field))
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Redirect reports whether err should send the user back to the menu/cart.
func Redirect(err error) bool {
	return errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrUnknownCart)
}
