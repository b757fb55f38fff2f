package handlers

import (
	"net/http"

	"brewdrop_back_end/internal/checkout"
	"brewdrop_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	orch *checkout.Orchestrator
}

func NewCheckoutHandler(orch *checkout.Orchestrator) *CheckoutHandler {
	return &CheckoutHandler{orch: orch}
}

// owned loads the session and checks it belongs to the caller. Guest
// sessions are reachable by anyone holding the id.
func (h *CheckoutHandler) owned(c *gin.Context) (string, bool) {
	id := c.Param("id")
	s, err := h.orch.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return "", false
	}
	if s.UserID != "" && s.UserID != c.GetString("user_id") {
		c.JSON(http.StatusForbidden, gin.H{"error": "checkout belongs to another user"})
		return "", false
	}
	return id, true
}

func (h *CheckoutHandler) Begin(c *gin.Context) {
	var body struct {
		CartToken string `json:"cartToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "cartToken is required")
		return
	}
	s, err := h.orch.Begin(c.Request.Context(), body.CartToken, c.GetString("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *CheckoutHandler) Get(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	s, err := h.orch.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *CheckoutHandler) SelectMethod(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var body struct {
		Method    models.Method `json:"method"`
		Name      string        `json:"name"`
		Address   string        `json:"address"`
		Phone     string        `json:"phone"`
		Email     string        `json:"email"`
		OrderTime *string       `json:"orderTime"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	s, err := h.orch.SelectMethod(c.Request.Context(), id, body.Method, checkout.Customer{
		Name:    body.Name,
		Address: body.Address,
		Phone:   body.Phone,
		Email:   body.Email,
	}, body.OrderTime)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *CheckoutHandler) CaptureContact(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var body struct {
		Phone string `json:"phone"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	s, err := h.orch.CaptureContact(c.Request.Context(), id, body.Phone, body.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *CheckoutHandler) SelectPayment(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var body struct {
		PaymentMethod        models.PaymentMethod `json:"paymentMethod"`
		Tax                  *float64             `json:"tax"`
		Tip                  *float64             `json:"tip"`
		SavedPaymentMethodID string               `json:"savedPaymentMethodId"`
		SaveCard             bool                 `json:"saveCard"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	s, err := h.orch.SelectPaymentMethod(c.Request.Context(), id, checkout.Selection{
		PaymentMethod: body.PaymentMethod,
		Tax:           body.Tax,
		Tip:           body.Tip,
		SavedMethodID: body.SavedPaymentMethodID,
		SaveCard:      body.SaveCard,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *CheckoutHandler) PrepareCard(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	s, err := h.orch.PrepareCard(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"clientSecret":    s.ClientSecret,
		"paymentIntentId": s.PaymentIntentID,
		"orderId":         s.OrderID,
		"session":         s,
	})
}

// ConfirmCard records what the payment sheet reported.
func (h *CheckoutHandler) ConfirmCard(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var body struct {
		Result string `json:"result"`
		Error  string `json:"error"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	out, err := h.orch.ConfirmCard(c.Request.Context(), id, body.Result, body.Error)
	if err != nil {
		if out != nil && out.Message != "" {
			c.JSON(statusFor(err), gin.H{"error": out.Message, "retry": true})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) SaveCard(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var body struct {
		Keep bool `json:"keep"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	out, err := h.orch.ResolveSaveCard(c.Request.Context(), id, body.Keep)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) SubmitCash(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var body struct {
		PolicyAccepted bool `json:"policyAccepted"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	out, err := h.orch.SubmitCash(c.Request.Context(), id, body.PolicyAccepted)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CheckoutHandler) StartPayPal(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	s, err := h.orch.StartPayPal(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvalUrl": s.ApprovalURL, "session": s})
}

// PayPalNavigation is called for every URL the approval view loads.
func (h *CheckoutHandler) PayPalNavigation(c *gin.Context) {
	id, ok := h.owned(c)
	if !ok {
		return
	}
	var body struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "url is required")
		return
	}
	st, s, err := h.orch.PayPalNavigation(c.Request.Context(), id, body.URL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  st,
		"close":   st != checkout.PayPalPending,
		"session": s,
	})
}
