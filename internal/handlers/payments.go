package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"brewdrop_back_end/internal/payments"
	"brewdrop_back_end/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type IntentCreator interface {
	Create(ctx context.Context, req payments.IntentRequest, idempotencyKey string) (*payments.IntentResponse, error)
	Settle(ctx context.Context, paymentIntentID string, succeeded bool) error
}

type PayPalOrders interface {
	CreateOrder(ctx context.Context, amount string) (string, error)
}

type PaymentHandler struct {
	intents       IntentCreator
	paypal        PayPalOrders
	webhookSecret string
}

func NewPaymentHandler(intents IntentCreator, paypal PayPalOrders, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{intents: intents, paypal: paypal, webhookSecret: webhookSecret}
}

// CreateIntent prices the posted cart and opens a processor intent. The
// user comes from the token, never from the body.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req payments.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Method != "" && !req.Method.Valid() {
		badRequest(c, "method must be pickup or delivery")
		return
	}
	req.UserID = c.GetString("user_id")
	if req.Email == "" {
		req.Email = c.GetString("email")
	}

	resp, err := h.intents.Create(c.Request.Context(), req, c.GetString("idempotency_key"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreatePayPalOrder takes a decimal amount string and returns the approval URL.
func (h *PaymentHandler) CreatePayPalOrder(c *gin.Context) {
	var body struct {
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "amount is required")
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil || !amount.IsPositive() {
		badRequest(c, "amount must be a positive decimal")
		return
	}
	if amount.GreaterThan(decimal.NewFromFloat(pricing.MaxAmount)) {
		badRequest(c, "amount is too large")
		return
	}
	f, _ := amount.Round(2).Float64()

	url, err := h.paypal.CreateOrder(c.Request.Context(), pricing.FormatAmount(f))
	if err != nil {
		log.Printf("❌ PayPal order: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvalUrl": url})
}

// Webhook settles order rows from Stripe payment intent events. A failed
// settlement answers non-2xx so Stripe delivers the event again.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to read body"})
		return
	}
	if h.webhookSecret == "" {
		log.Println("⚠️ STRIPE_WEBHOOK_SECRET not set, accepting unsigned webhook")
	}

	event, settlement, err := payments.ParseWebhook(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		log.Printf("❌ Webhook rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Printf("📥 Stripe event %s (%s)", event.Type, event.ID)

	if settlement != nil {
		if err := h.intents.Settle(c.Request.Context(), settlement.PaymentIntentID, settlement.Succeeded); err != nil {
			log.Printf("❌ Settling %s: %v", settlement.PaymentIntentID, err)
			status := http.StatusInternalServerError
			if errors.Is(err, payments.ErrNoIntentRows) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
