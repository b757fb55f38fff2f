// Package status tracks a submitted order: it polls the stored rows, derives
// the presentation state and layers the customer's receipt confirmation and
// rating on top.
package status

import "brewdrop_back_end/internal/models"

type State string

const (
	Confirming State = "confirming"
	Preparing  State = "preparing"
	EnRoute    State = "en_route"
	Rating     State = "rating"
	Thanked    State = "thanked"
)

// Derive maps the staff-owned flags of the sentinel row to a state. Only
// the first three states come from the server.
func Derive(row models.OrderRow) State {
	if row.Delivered != nil && *row.Delivered {
		return EnRoute
	}
	if row.ReceivedOrder != nil && *row.ReceivedOrder {
		return Preparing
	}
	return Confirming
}
