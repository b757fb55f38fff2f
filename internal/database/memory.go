package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"brewdrop_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// MemoryStore implements the same repositories in process memory. It is
// used for local runs without a cluster and by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   []models.OrderRow
	profiles map[string]models.Profile
	methods  map[string][]models.SavedPaymentMethod
	defaults map[string]string
	contacts []models.Contact
	ratings  map[string]models.Rating

	// FailInserts makes InsertOrderRows fail, for exercising error paths.
	FailInserts error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]models.Profile),
		methods:  make(map[string][]models.SavedPaymentMethod),
		defaults: make(map[string]string),
		ratings:  make(map[string]models.Rating),
	}
}

func (m *MemoryStore) InsertOrderRows(_ context.Context, rows []models.OrderRow) error {
	if len(rows) == 0 {
		return errors.New("no order rows to insert")
	}
	if m.FailInserts != nil {
		return m.FailInserts
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, rows...)
	return nil
}

func (m *MemoryStore) GetOrderRow(_ context.Context, id string) (*models.OrderRow, error) {
	uid, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.orders {
		if r.ID == uid {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListSiblings(_ context.Context, key models.GroupKey) ([]models.OrderRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.OrderRow
	for _, r := range m.orders {
		if r.GroupKey() == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) SetIntentStatus(_ context.Context, paymentIntentID, status string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.orders {
		if m.orders[i].PaymentIntentID == paymentIntentID {
			m.orders[i].Status = status
			n++
		}
	}
	return n, nil
}

// UpdateOrder applies fn to the stored row, standing in for staff tooling.
func (m *MemoryStore) UpdateOrder(id gocql.UUID, fn func(r *models.OrderRow)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id {
			fn(&m.orders[i])
			return true
		}
	}
	return false
}

func (m *MemoryStore) Orders() []models.OrderRow {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.OrderRow(nil), m.orders...)
}

func (m *MemoryStore) FindProfile(_ context.Context, userID string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) UpsertProfile(_ context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.profiles[p.UserID]; ok {
		p.StripeCustomerID = old.StripeCustomerID
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	m.profiles[p.UserID] = p
	return nil
}

func (m *MemoryStore) SetStripeCustomer(_ context.Context, userID, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profiles[userID]
	p.UserID = userID
	p.StripeCustomerID = customerID
	m.profiles[userID] = p
	return nil
}

func (m *MemoryStore) SetAvatar(_ context.Context, userID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profiles[userID]
	p.UserID = userID
	p.AvatarURL = url
	p.UpdatedAt = time.Now()
	m.profiles[userID] = p
	return nil
}

func (m *MemoryStore) InsertContact(_ context.Context, c models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, c)
	return nil
}

func (m *MemoryStore) Contacts() []models.Contact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Contact(nil), m.contacts...)
}

func (m *MemoryStore) InsertRating(_ context.Context, r models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ratings[r.OrderID]; ok {
		return ErrAlreadyRated
	}
	m.ratings[r.OrderID] = r
	return nil
}

func (m *MemoryStore) ListPaymentMethods(_ context.Context, userID string) ([]models.SavedPaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.methodsLocked(userID), nil
}

func (m *MemoryStore) GetPaymentMethod(_ context.Context, userID, id string) (*models.SavedPaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pm := range m.methodsLocked(userID) {
		if pm.ID == id {
			return &pm, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) InsertPaymentMethod(_ context.Context, pm models.SavedPaymentMethod) (*models.SavedPaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm.ID = uuid.NewString()
	pm.IsDefault = false
	if pm.CreatedAt.IsZero() {
		pm.CreatedAt = time.Now()
	}
	m.methods[pm.UserID] = append(m.methods[pm.UserID], pm)
	if _, ok := m.defaults[pm.UserID]; !ok {
		m.defaults[pm.UserID] = pm.ID
		pm.IsDefault = true
	}
	return &pm, nil
}

func (m *MemoryStore) DeletePaymentMethod(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.methods[userID]
	for i, pm := range list {
		if pm.ID != id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		m.methods[userID] = list
		if m.defaults[userID] == id {
			delete(m.defaults, userID)
			if rest := m.methodsLocked(userID); len(rest) > 0 {
				m.defaults[userID] = rest[len(rest)-1].ID
			}
		}
		return nil
	}
	return ErrNotFound
}

func (m *MemoryStore) SetDefault(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pm := range m.methods[userID] {
		if pm.ID == id {
			m.defaults[userID] = id
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) methodsLocked(userID string) []models.SavedPaymentMethod {
	out := append([]models.SavedPaymentMethod(nil), m.methods[userID]...)
	sortMethods(out)
	markDefault(out, m.defaults[userID])
	return out
}
