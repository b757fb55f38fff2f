package models

type MilkType string

const (
	MilkRegular MilkType = "milk"
	MilkOat     MilkType = "oat"
)

func (m MilkType) Valid() bool {
	return m == MilkRegular || m == MilkOat
}

// CartItem is one drink line in the active cart. Duplicates are separate lines.
type CartItem struct {
	ID       string    `json:"id"`
	DrinkID  string    `json:"drink_id"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
	Sugar    *bool     `json:"sugar"`
	MilkType *MilkType `json:"milkType"`
}

func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
