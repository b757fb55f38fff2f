package notify

import (
	"bytes"
	"context"
	"testing"

	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt() Receipt {
	items := []models.CartItem{{Name: "Latte <oat>", Price: 4.5, Quantity: 2}, {Name: "Drip", Price: 3, Quantity: 1}}
	return Receipt{
		To:       "ada@example.com",
		Customer: "Ada",
		OrderID:  "order-1",
		Method:   models.MethodPickup,
		Payment:  models.PaymentCash,
		Items:    items,
		Quote:    pricing.NewQuote(items, pricing.Inputs{}),
	}
}

func TestReceiptHTML(t *testing.T) {
	out := ReceiptHTML(sampleReceipt())
	assert.Contains(t, out, "Latte &lt;oat&gt;")
	assert.Contains(t, out, "$9.00")
	assert.Contains(t, out, "Total: $13.56")
	assert.Contains(t, out, "order-1")
}

func TestPickupQR(t *testing.T) {
	png, err := PickupQR("order-1", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestMailer_BuildReceipt(t *testing.T) {
	m := NewMailer(MailerConfig{From: "noreply@brewdrop.app"})
	msg, err := m.BuildReceipt(sampleReceipt())
	require.NoError(t, err)
	assert.Len(t, msg.GetAttachments(), 1)

	_, err = m.BuildReceipt(Receipt{To: "not an address"})
	assert.Error(t, err)
}

func TestMailer_SkipsWithoutSMTP(t *testing.T) {
	m := NewMailer(MailerConfig{From: "noreply@brewdrop.app"})
	assert.NoError(t, m.SendReceipt(context.Background(), sampleReceipt()))
}
