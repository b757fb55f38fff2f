package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Method string

const (
	MethodPickup   Method = "pickup"
	MethodDelivery Method = "delivery"
)

func (m Method) Valid() bool {
	return m == MethodPickup || m == MethodDelivery
}

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentCash     PaymentMethod = "cash"
	PaymentApplePay PaymentMethod = "apple-pay"
	PaymentPayPal   PaymentMethod = "paypal"
)

// Row lifecycle, managed server side. Staff-owned flags live in ReceivedOrder/Delivered/Ready.
const (
	RowStatusPending   = "pending"
	RowStatusPaid      = "paid"
	RowStatusPlaced    = "placed"
	RowStatusAbandoned = "abandoned"
)

// PickupAddress is stored in Location for pickup orders.
const PickupAddress = "pickup"

// OrderRow is one persisted drink of an order. Rows of the same order share
// CreatedAt, Name and UserID; only the first row of a batch carries the
// order-level fields (Delivered, Ready, Tax, Tip, ETA).
type OrderRow struct {
	ID              gocql.UUID    `json:"id"`
	CreatedAt       time.Time     `json:"created_at"`
	Name            string        `json:"name"`
	DrinkID         string        `json:"drink_id"`
	DrinkName       string        `json:"drink_name"`
	Sugar           *bool         `json:"sugar"`
	Milk            *MilkType     `json:"milk"`
	Price           float64       `json:"price"`
	Quantity        int           `json:"quantity"`
	TotalAmount     float64       `json:"totalAmount"`
	Location        string        `json:"location"`
	ReceivedOrder   *bool         `json:"received_order"`
	Delivered       *bool         `json:"delivered"`
	Ready           *bool         `json:"ready"`
	Method          Method        `json:"method"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	Tax             *float64      `json:"tax"`
	Tip             *float64      `json:"tip"`
	ETA             *int          `json:"eta"`
	OrderTime       *string       `json:"order_time"`
	UserID          *string       `json:"user_id"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	Status          string        `json:"status"`
}

// GroupKey identifies the sibling rows of one order.
type GroupKey struct {
	CreatedAt time.Time
	Name      string
	UserID    string
}

func (r OrderRow) GroupKey() GroupKey {
	k := GroupKey{CreatedAt: r.CreatedAt, Name: r.Name}
	if r.UserID != nil {
		k.UserID = *r.UserID
	}
	return k
}

// IsSentinel reports whether the row carries the order-level fields.
func (r OrderRow) IsSentinel() bool {
	return r.Delivered != nil || r.Ready != nil
}
