package status

import (
	"context"
	"errors"
	"log"
	"time"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/orders"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStars  = errors.New("stars must be between 1 and 5")
)

const DefaultInterval = 5 * time.Second

// OrderReader reads order rows. GetOrderRow returns nil, nil when the id
// is unknown.
type OrderReader interface {
	GetOrderRow(ctx context.Context, id string) (*models.OrderRow, error)
	ListSiblings(ctx context.Context, key models.GroupKey) ([]models.OrderRow, error)
}

type RatingWriter interface {
	InsertRating(ctx context.Context, r models.Rating) error
}

// View is one poll result as shown to the customer.
type View struct {
	OrderID  string            `json:"order_id"`
	State    State             `json:"state"`
	Method   models.Method     `json:"method,omitempty"`
	Items    []models.OrderRow `json:"items,omitempty"`
	Tax      *float64          `json:"tax,omitempty"`
	Tip      *float64          `json:"tip,omitempty"`
	Total    float64           `json:"total"`
	ETA      *int              `json:"eta,omitempty"`
	Error    string            `json:"error,omitempty"`
	Partial  bool              `json:"partial,omitempty"`
	PolledAt time.Time         `json:"polled_at"`
}

type Poller struct {
	orders   OrderReader
	ratings  RatingWriter
	interval time.Duration
	now      func() time.Time
}

func NewPoller(o OrderReader, r RatingWriter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{orders: o, ratings: r, interval: interval, now: time.Now}
}

// Snapshot fetches the order and its sibling rows. Abandoned rows are
// treated as missing.
func (p *Poller) Snapshot(ctx context.Context, orderID string, from *Coordinate) (*View, error) {
	row, err := p.orders.GetOrderRow(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if row == nil || row.Status == models.RowStatusAbandoned {
		return nil, ErrOrderNotFound
	}

	siblings, err := p.orders.ListSiblings(ctx, row.GroupKey())
	if err != nil {
		return nil, err
	}
	items := make([]models.OrderRow, 0, len(siblings))
	for _, r := range siblings {
		if r.Status != models.RowStatusAbandoned {
			items = append(items, r)
		}
	}
	if len(items) == 0 {
		items = []models.OrderRow{*row}
	}

	head, _ := orders.Sentinel(items)
	v := &View{
		OrderID:  orderID,
		State:    Derive(head),
		Method:   head.Method,
		Items:    items,
		Tax:      head.Tax,
		Tip:      head.Tip,
		ETA:      head.ETA,
		PolledAt: p.now(),
	}
	for _, r := range items {
		v.Total += r.TotalAmount
	}
	if v.State == EnRoute && from != nil {
		eta := EstimateETA(*from)
		v.ETA = &eta
	}
	return v, nil
}

// Run polls orderID every interval and hands each view to emit, until the
// tracker reaches Thanked, ctx is done or emit fails. A missing order is
// reported as a partial view and polling continues.
func (p *Poller) Run(ctx context.Context, orderID string, t *Tracker, emit func(View) error) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if t.Terminal() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(p.tick(ctx, orderID, t)); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context, orderID string, t *Tracker) View {
	v, err := p.Snapshot(ctx, orderID, t.location())
	if err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			log.Printf("⚠️ Polling order %s: %v", orderID, err)
		}
		return View{OrderID: orderID, State: t.State(), Error: err.Error(), Partial: true, PolledAt: p.now()}
	}
	v.State = t.Observe(v.State)
	return *v
}

// SubmitRating stores the customer's rating and moves the tracker to
// Thanked.
func (p *Poller) SubmitRating(ctx context.Context, t *Tracker, r models.Rating) error {
	if err := t.checkRate(); err != nil {
		return err
	}
	if r.Stars < 1 || r.Stars > 5 {
		return ErrInvalidStars
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = p.now()
	}
	if p.ratings != nil {
		if err := p.ratings.InsertRating(ctx, r); err != nil {
			log.Printf("❌ Saving rating for %s: %v", r.OrderID, err)
			return err
		}
	}
	t.markRated()
	log.Printf("✅ Order %s rated %d", r.OrderID, r.Stars)
	return nil
}
