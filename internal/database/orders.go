package database

import (
	"context"
	"errors"
	"fmt"

	"brewdrop_back_end/internal/models"

	"github.com/gocql/gocql"
)

const orderColumns = `id, created_at, name, drink_id, drink_name, sugar, milk, price, quantity, total_amount,
	location, received_order, delivered, ready, method, payment_method, tax, tip, eta, order_time,
	user_id, payment_intent_id, status`

// Store implements the repositories on a ScyllaDB session.
type Store struct {
	session *gocql.Session
}

func NewStore(session *gocql.Session) *Store {
	return &Store{session: session}
}

// InsertOrderRows writes every row of one order in a single logged batch:
// all rows land or none do.
func (s *Store) InsertOrderRows(ctx context.Context, rows []models.OrderRow) error {
	if len(rows) == 0 {
		return errors.New("no order rows to insert")
	}

	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, r := range rows {
		var milk *string
		if r.Milk != nil {
			m := string(*r.Milk)
			milk = &m
		}
		groupUser := ""
		if r.UserID != nil {
			groupUser = *r.UserID
		}

		batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.CreatedAt, r.Name, r.DrinkID, r.DrinkName, r.Sugar, milk, r.Price, r.Quantity, r.TotalAmount,
			r.Location, r.ReceivedOrder, r.Delivered, r.Ready, string(r.Method), string(r.PaymentMethod), r.Tax, r.Tip, r.ETA, r.OrderTime,
			r.UserID, r.PaymentIntentID, r.Status)
		batch.Query(`INSERT INTO orders_by_group (created_at, name, user_id, id) VALUES (?, ?, ?, ?)`,
			r.CreatedAt, r.Name, groupUser, r.ID)
		if r.PaymentIntentID != "" {
			batch.Query(`INSERT INTO orders_by_intent (payment_intent_id, id) VALUES (?, ?)`, r.PaymentIntentID, r.ID)
		}
	}

	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("insert order batch: %w", err)
	}
	return nil
}

// GetOrderRow returns nil, nil for an unknown or malformed id.
func (s *Store) GetOrderRow(ctx context.Context, id string) (*models.OrderRow, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, nil
	}
	r, err := scanOrder(s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, uid).WithContext(ctx))
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListSiblings returns the rows of one order in submission order.
func (s *Store) ListSiblings(ctx context.Context, key models.GroupKey) ([]models.OrderRow, error) {
	iter := s.session.Query(`SELECT id FROM orders_by_group WHERE created_at = ? AND name = ? AND user_id = ?`,
		key.CreatedAt, key.Name, key.UserID).WithContext(ctx).Iter()

	var ids []gocql.UUID
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list order group: %w", err)
	}

	rows := make([]models.OrderRow, 0, len(ids))
	for _, id := range ids {
		r, err := scanOrder(s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id).WithContext(ctx))
		if errors.Is(err, gocql.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, *r)
	}
	return rows, nil
}

// SetIntentStatus updates the status of every row created for a payment
// intent and returns how many rows it touched.
func (s *Store) SetIntentStatus(ctx context.Context, paymentIntentID, status string) (int, error) {
	iter := s.session.Query(`SELECT id FROM orders_by_intent WHERE payment_intent_id = ?`, paymentIntentID).
		WithContext(ctx).Iter()

	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	var id gocql.UUID
	n := 0
	for iter.Scan(&id) {
		batch.Query(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
		n++
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("list intent rows: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return 0, fmt.Errorf("update intent rows: %w", err)
	}
	return n, nil
}

func scanOrder(q *gocql.Query) (*models.OrderRow, error) {
	var (
		r                     models.OrderRow
		milk                  *string
		method, paymentMethod string
	)
	err := q.Scan(&r.ID, &r.CreatedAt, &r.Name, &r.DrinkID, &r.DrinkName, &r.Sugar, &milk, &r.Price, &r.Quantity, &r.TotalAmount,
		&r.Location, &r.ReceivedOrder, &r.Delivered, &r.Ready, &method, &paymentMethod, &r.Tax, &r.Tip, &r.ETA, &r.OrderTime,
		&r.UserID, &r.PaymentIntentID, &r.Status)
	if err != nil {
		return nil, err
	}
	if milk != nil {
		m := models.MilkType(*milk)
		r.Milk = &m
	}
	r.Method = models.Method(method)
	r.PaymentMethod = models.PaymentMethod(paymentMethod)
	return &r, nil
}
