package notify

import (
	"fmt"
	"html"
	"strings"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/pricing"

	"github.com/skip2/go-qrcode"
)

type Receipt struct {
	To       string
	Customer string
	OrderID  string
	Method   models.Method
	Payment  models.PaymentMethod
	Items    []models.CartItem
	Quote    pricing.Quote
}

// PickupQR encodes the order id shown at the counter.
func PickupQR(orderID string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode("brewdrop:order:"+orderID, qrcode.Medium, size)
}

func ReceiptHTML(r Receipt) string {
	var rows strings.Builder
	for _, it := range r.Items {
		fmt.Fprintf(&rows, `
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>$%s</td>
				<td>$%s</td>
			</tr>`, html.EscapeString(it.Name), it.Quantity, pricing.FormatAmount(it.Price), pricing.FormatAmount(it.Subtotal()))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Your BrewDrop order</title></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f6f2; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #4b2e1e;">Thanks, %s!</h2>
		<p>Order <strong>%s</strong> (%s, paid by %s) is on its way to the bar.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr><th align="left">Drink</th><th align="left">Qty</th><th align="left">Price</th><th align="left">Total</th></tr>
			</thead>
			<tbody>%s
			</tbody>
		</table>
		<p>Subtotal: $%s<br>Tax: $%s<br>Tip: $%s<br><strong>Total: $%s</strong></p>
		<p>Show the attached code at pickup.</p>
	</div>
</body>
</html>`,
		html.EscapeString(r.Customer), html.EscapeString(r.OrderID), r.Method, r.Payment, rows.String(),
		pricing.FormatAmount(r.Quote.Subtotal), pricing.FormatAmount(r.Quote.Tax),
		pricing.FormatAmount(r.Quote.Tip), pricing.FormatAmount(pricing.CentsToAmount(r.Quote.AmountInCents)))
}
