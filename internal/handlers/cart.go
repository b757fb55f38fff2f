package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"brewdrop_back_end/internal/cart"
	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/pricing"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	carts   *cart.Registry
	taxRate float64
}

func NewCartHandler(carts *cart.Registry, taxRate float64) *CartHandler {
	return &CartHandler{carts: carts, taxRate: taxRate}
}

func (h *CartHandler) store(c *gin.Context) (*cart.Store, bool) {
	s, err := h.carts.Get(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "redirect": "menu"})
		return nil, false
	}
	return s, true
}

func (h *CartHandler) Open(c *gin.Context) {
	token, _ := h.carts.Open()
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// Get returns the items with a quote. Optional tax and tip query values
// override the computed tax and the zero tip.
func (h *CartHandler) Get(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	in := pricing.Inputs{TaxRate: h.taxRate}
	if v, err := strconv.ParseFloat(c.Query("tax"), 64); err == nil {
		in.Tax = &v
	}
	if v, err := strconv.ParseFloat(c.Query("tip"), 64); err == nil {
		in.Tip = &v
	}
	items := s.Items()
	if err := pricing.Validate(items, in); err != nil {
		badRequest(c, err.Error())
		return
	}
	q := pricing.NewQuote(items, in)
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"quote": q,
		"lines": pricing.Prorate(items, q),
	})
}

func (h *CartHandler) AddItem(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, "invalid item")
		return
	}
	if item.DrinkID == "" || item.Name == "" {
		badRequest(c, "drink_id and name are required")
		return
	}
	if item.Price < 0 {
		badRequest(c, "price must not be negative")
		return
	}
	if item.Price > pricing.MaxAmount {
		badRequest(c, "price is too large")
		return
	}
	if item.MilkType != nil && !item.MilkType.Valid() {
		badRequest(c, "milkType must be milk or oat")
		return
	}
	c.JSON(http.StatusCreated, s.Add(item))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Quantity == nil {
		badRequest(c, "quantity is required")
		return
	}
	if err := s.UpdateQuantity(c.Param("id"), *body.Quantity); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": s.Items()})
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	if err := s.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) Clear(c *gin.Context) {
	s, ok := h.store(c)
	if !ok {
		return
	}
	s.Clear()
	c.Status(http.StatusNoContent)
}
