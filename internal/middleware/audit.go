package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// PaymentAudit logs one line per payment request once it has been handled.
func PaymentAudit() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		user := c.GetString("user_id")
		if user == "" {
			user = "guest"
		}
		status := c.Writer.Status()
		prefix := "💳"
		if status >= 400 {
			prefix = "❌"
		}
		log.Printf("%s %s %s -> %d (user=%s ip=%s key=%s) %s", prefix, c.Request.Method, c.FullPath(), status,
			user, c.ClientIP(), c.GetHeader(IdempotencyHeader), time.Since(start).Round(time.Millisecond))
	}
}
