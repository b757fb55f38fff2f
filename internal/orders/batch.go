// Package orders turns a priced cart into the rows of one order.
package orders

import (
	"time"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/pricing"

	"github.com/gocql/gocql"
)

// Initial ETA written on the sentinel row, in minutes.
const (
	PickupETA   = 10
	DeliveryETA = 25
)

// Group carries the fields shared by every row of one order.
type Group struct {
	CustomerName    string
	Address         string
	Method          models.Method
	PaymentMethod   models.PaymentMethod
	UserID          string
	OrderTime       *string
	PaymentIntentID string
	Status          string
	CreatedAt       time.Time
}

// Build returns one row per item. Row 0 is the sentinel: it alone carries
// delivered/ready/tax/tip/eta; on every other row those are nil.
func Build(items []models.CartItem, q pricing.Quote, g Group) []models.OrderRow {
	if len(items) == 0 {
		return nil
	}

	createdAt := g.CreatedAt.UTC().Truncate(time.Millisecond)
	location := g.Address
	if g.Method == models.MethodPickup || location == "" {
		location = models.PickupAddress
	}
	var userID *string
	if g.UserID != "" {
		u := g.UserID
		userID = &u
	}
	status := g.Status
	if status == "" {
		status = models.RowStatusPending
	}

	lines := pricing.Prorate(items, q)
	rows := make([]models.OrderRow, len(items))
	for i, it := range items {
		rows[i] = models.OrderRow{
			ID:              gocql.TimeUUID(),
			CreatedAt:       createdAt,
			Name:            g.CustomerName,
			DrinkID:         it.DrinkID,
			DrinkName:       it.Name,
			Sugar:           it.Sugar,
			Milk:            it.MilkType,
			Price:           it.Price,
			Quantity:        it.Quantity,
			TotalAmount:     pricing.Round2(lines[i].Total),
			Location:        location,
			Method:          g.Method,
			PaymentMethod:   g.PaymentMethod,
			OrderTime:       g.OrderTime,
			UserID:          userID,
			PaymentIntentID: g.PaymentIntentID,
			Status:          status,
		}
	}

	eta := PickupETA
	if g.Method == models.MethodDelivery {
		eta = DeliveryETA
	}
	rows[0].Delivered = pointer(false)
	rows[0].Ready = pointer(false)
	rows[0].Tax = pointer(pricing.Round2(q.Tax))
	rows[0].Tip = pointer(pricing.Round2(q.Tip))
	rows[0].ETA = &eta
	return rows
}

// Sentinel returns the row carrying the order-level fields, or the first row.
func Sentinel(rows []models.OrderRow) (models.OrderRow, bool) {
	if len(rows) == 0 {
		return models.OrderRow{}, false
	}
	for _, r := range rows {
		if r.IsSentinel() {
			return r, true
		}
	}
	return rows[0], true
}

func pointer[T any](v T) *T { return &v }
