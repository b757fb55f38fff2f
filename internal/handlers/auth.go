package handlers

import (
	"context"
	"log"
	"net/http"

	"brewdrop_back_end/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
)

type ctxKey string

// ProviderKey carries the goth provider name in the request context.
const ProviderKey ctxKey = "provider"

type SignIn interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, callbackURL string) auth.Result
	CompleteGoth(ctx context.Context, u goth.User) (*auth.Session, error)
}

type AuthHandler struct {
	signIn SignIn
}

func NewAuthHandler(s SignIn) *AuthHandler {
	return &AuthHandler{signIn: s}
}

// Login returns the provider URL the app opens in its auth session.
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	c.JSON(http.StatusOK, gin.H{"url": h.signIn.AuthURL(state), "state": state})
}

// Callback finishes the deep-link flow. The app forwards the URL it was
// opened with as ?url=; a provider redirecting here directly works too.
func (h *AuthHandler) Callback(c *gin.Context) {
	callback := c.Query("url")
	if callback == "" {
		callback = c.Request.URL.String()
	}

	switch r := h.signIn.Exchange(c.Request.Context(), callback).(type) {
	case auth.Success:
		log.Printf("✅ User %s signed in", r.Session.UserID)
		c.JSON(http.StatusOK, r.Session)
	case auth.Cancelled:
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
	case auth.Failed:
		c.JSON(http.StatusUnauthorized, gin.H{"error": r.Reason})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected sign-in result"})
	}
}

func withProvider(c *gin.Context) bool {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no provider given"})
		return false
	}
	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ProviderKey, provider),
	)
	return true
}

// BeginAuth starts the browser OAuth flow.
func (h *AuthHandler) BeginAuth(c *gin.Context) {
	if !withProvider(c) {
		return
	}
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func (h *AuthHandler) CallbackAuth(c *gin.Context) {
	if !withProvider(c) {
		return
	}
	user, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.signIn.CompleteGoth(c.Request.Context(), user)
	if err != nil {
		log.Printf("❌ Sign-in via %s: %v", user.Provider, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "sign-in failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}
