package cart

import (
	"errors"
	"sync"

	"brewdrop_back_end/internal/models"

	"github.com/google/uuid"
)

var ErrItemNotFound = errors.New("cart item not found")

// Store holds the line items of one shopping session, in insertion order.
type Store struct {
	mu    sync.Mutex
	items []models.CartItem
}

func NewStore() *Store {
	return &Store{}
}

// Add appends item under a fresh id. Identical drinks are never merged.
func (s *Store) Add(item models.CartItem) models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uuid.NewString()
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	s.items = append(s.items, item)
	return item
}

// UpdateQuantity sets the quantity of id exactly; qty <= 0 removes the line.
func (s *Store) UpdateQuantity(id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrItemNotFound
	}
	if qty <= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		return nil
	}
	s.items[idx].Quantity = qty
	return nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return ErrItemNotFound
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) indexOf(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
