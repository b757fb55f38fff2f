package cart

import (
	"testing"

	"brewdrop_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latte(price float64, qty int) models.CartItem {
	return models.CartItem{DrinkID: "latte", Name: "Latte", Price: price, Quantity: qty}
}

func TestStore_AddNeverMerges(t *testing.T) {
	s := NewStore()
	a := s.Add(latte(4.5, 1))
	b := s.Add(latte(4.5, 1))

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestStore_KeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	first := s.Add(models.CartItem{Name: "Americano", Price: 3, Quantity: 1})
	second := s.Add(models.CartItem{Name: "Mocha", Price: 5, Quantity: 1})
	third := s.Add(models.CartItem{Name: "Cortado", Price: 4, Quantity: 1})

	require.NoError(t, s.Remove(second.ID))
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, third.ID, items[1].ID)
}

func TestStore_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name    string
		qty     int
		wantLen int
		wantQty int
	}{
		{"set exactly", 3, 1, 3},
		{"zero removes", 0, 0, 0},
		{"negative removes", -1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			it := s.Add(latte(4.5, 2))

			require.NoError(t, s.UpdateQuantity(it.ID, tt.qty))
			items := s.Items()
			require.Len(t, items, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantQty, items[0].Quantity)
			}
		})
	}
}

func TestStore_UnknownItem(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.UpdateQuantity("nope", 2), ErrItemNotFound)
	assert.ErrorIs(t, s.Remove("nope"), ErrItemNotFound)
}

func TestStore_ItemsIsACopy(t *testing.T) {
	s := NewStore()
	s.Add(latte(4.5, 1))
	items := s.Items()
	items[0].Quantity = 99

	assert.Equal(t, 1, s.Items()[0].Quantity)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Add(latte(4.5, 1))
	s.Add(latte(3, 2))
	s.Clear()
	assert.Empty(t, s.Items())
}
