// Package pricing derives order money figures from cart contents.
//
// Display amounts are two-place decimals. The amount charged by the payment
// processor is computed once, by ToCents, from the unrounded total; display
// rounding and the charged figure may disagree by at most one cent.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"brewdrop_back_end/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate applies when no explicit tax is supplied.
const DefaultTaxRate = 0.13

// MaxAmount caps every money figure a caller can supply: item prices,
// the order subtotal, tax and tip.
const MaxAmount = 10000.0

var ErrAmountOutOfRange = errors.New("amount out of range")

var hundred = decimal.NewFromInt(100)

// Inputs are the caller-chosen figures. A nil pointer means "not provided".
type Inputs struct {
	Tax           *float64
	Tip           *float64
	AmountInCents *int64
	TaxRate       float64
}

type Quote struct {
	Subtotal      float64 `json:"subtotal"`
	Tax           float64 `json:"tax"`
	Tip           float64 `json:"tip"`
	Total         float64 `json:"total"`
	AmountInCents int64   `json:"amountInCents"`
}

// LineTotal is one cart line with its share of the order-level tax and tip.
type LineTotal struct {
	ItemID   string  `json:"item_id"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`
}

func Float(v float64) *float64 { return &v }

func Subtotal(items []models.CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return sum
}

// Validate rejects figures that cannot be priced: anything non-finite, or
// above MaxAmount. Negative tax or tip stays valid and means "not provided".
func Validate(items []models.CartItem, in Inputs) error {
	if err := checkAmount("tax", in.Tax); err != nil {
		return err
	}
	if err := checkAmount("tip", in.Tip); err != nil {
		return err
	}
	for _, it := range items {
		if !finite(it.Price) || it.Price > MaxAmount {
			return fmt.Errorf("%w: price of %q", ErrAmountOutOfRange, it.Name)
		}
	}
	if sub := Subtotal(items); sub > MaxAmount {
		return fmt.Errorf("%w: subtotal %s exceeds %s", ErrAmountOutOfRange, FormatAmount(sub), FormatAmount(MaxAmount))
	}
	return nil
}

func checkAmount(name string, v *float64) error {
	if v == nil {
		return nil
	}
	if !finite(*v) || *v > MaxAmount {
		return fmt.Errorf("%w: %s", ErrAmountOutOfRange, name)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ResolveTax returns the provided tax when present, finite and
// non-negative, else subtotal*rate. An explicit zero is honoured.
func ResolveTax(subtotal float64, provided *float64, rate float64) float64 {
	if provided != nil && finite(*provided) && *provided >= 0 {
		return *provided
	}
	if rate <= 0 {
		rate = DefaultTaxRate
	}
	return subtotal * rate
}

func ResolveTip(provided *float64) float64 {
	if provided != nil && finite(*provided) && *provided > 0 {
		return *provided
	}
	return 0
}

func NewQuote(items []models.CartItem, in Inputs) Quote {
	sub := Subtotal(items)
	return quoteFor(sub, in)
}

func quoteFor(sub float64, in Inputs) Quote {
	q := Quote{Subtotal: sub}
	q.Tax = ResolveTax(sub, in.Tax, in.TaxRate)
	q.Tip = ResolveTip(in.Tip)
	q.Total = q.Subtotal + q.Tax + q.Tip
	if in.AmountInCents != nil {
		q.AmountInCents = *in.AmountInCents
	} else {
		q.AmountInCents = ToCents(q.Total)
	}
	return q
}

// ToCents rounds total to two places, then to whole cents. Totals that do
// not fit in int64 cents yield 0; callers run Validate first.
func ToCents(total float64) int64 {
	if !finite(total) || math.Abs(total) >= math.MaxInt64/100 {
		return 0
	}
	return decimal.NewFromFloat(total).Round(2).Mul(hundred).Round(0).IntPart()
}

func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatAmount renders v with exactly two decimals.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func CentsToAmount(cents int64) float64 {
	f, _ := decimal.New(cents, -2).Float64()
	return f
}

// Prorate spreads the quote's tax and tip across items by their share of
// the subtotal. A zero subtotal yields zero shares.
func Prorate(items []models.CartItem, q Quote) []LineTotal {
	out := make([]LineTotal, len(items))
	for i, it := range items {
		line := LineTotal{ItemID: it.ID, Subtotal: it.Subtotal()}
		if q.Subtotal != 0 {
			share := line.Subtotal / q.Subtotal
			line.Tax = share * q.Tax
			line.Tip = share * q.Tip
		}
		line.Total = line.Subtotal + line.Tax + line.Tip
		out[i] = line
	}
	return out
}
