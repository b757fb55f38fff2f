// Package handlers exposes the checkout back end over HTTP.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"brewdrop_back_end/internal/checkout"
	"brewdrop_back_end/internal/payments"
	"brewdrop_back_end/internal/pricing"

	"github.com/gin-gonic/gin"
)

// fail writes err as {"error": ...} with a status matching its kind.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if k := checkout.KindOf(err); k != checkout.KindUnknown {
		body["kind"] = k.String()
	}
	if checkout.Redirect(err) {
		body["redirect"] = "menu"
	}
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch checkout.KindOf(err) {
	case checkout.KindValidation:
		return http.StatusBadRequest
	case checkout.KindConflict:
		return http.StatusConflict
	case checkout.KindNetwork:
		return http.StatusBadGateway
	case checkout.KindPartialData:
		return http.StatusNotFound
	}
	switch {
	case errors.Is(err, payments.ErrNoItems),
		errors.Is(err, payments.ErrAmountMismatch),
		errors.Is(err, payments.ErrUnknownMethod),
		errors.Is(err, pricing.ErrAmountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrDuplicateRequest):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
