package middleware

import (
	"log"
	"net/http"
	"strings"

	"brewdrop_back_end/internal/auth"

	"github.com/gin-gonic/gin"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired rejects requests without a valid bearer token and puts
// user_id and email in the context.
func AuthRequired(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			return
		}
		claims, err := v.Verify(raw)
		if err != nil {
			log.Printf("❌ JWT rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// AuthOptional identifies the user when a valid token is present and lets
// guests through otherwise.
func AuthOptional(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearer(c); ok {
			if claims, err := v.Verify(raw); err == nil {
				c.Set("user_id", claims.UserID)
				c.Set("email", claims.Email)
			} else {
				log.Printf("⚠️ Ignoring invalid token on guest route: %v", err)
			}
		}
		c.Next()
	}
}
