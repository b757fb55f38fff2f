package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const IdempotencyHeader = "Idempotency-Key"

// IdempotencyKey validates the optional Idempotency-Key header and stores it
// under "idempotency_key".
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if len(key) > 255 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key too long"})
			return
		}
		if key != "" {
			c.Set("idempotency_key", key)
		}
		c.Next()
	}
}
