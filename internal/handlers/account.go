package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"brewdrop_back_end/internal/database"
	"brewdrop_back_end/internal/models"

	"github.com/gin-gonic/gin"
)

const maxAvatarBytes = 5 << 20

type ProfileService interface {
	FindProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
	SetAvatar(ctx context.Context, userID, url string) error
}

type PaymentMethodStore interface {
	ListPaymentMethods(ctx context.Context, userID string) ([]models.SavedPaymentMethod, error)
	GetPaymentMethod(ctx context.Context, userID, id string) (*models.SavedPaymentMethod, error)
	InsertPaymentMethod(ctx context.Context, m models.SavedPaymentMethod) (*models.SavedPaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, userID, id string) error
	SetDefault(ctx context.Context, userID, id string) error
}

type AvatarStore interface {
	Upload(ctx context.Context, userID, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// CardDetacher removes a card from the processor customer.
type CardDetacher interface {
	Detach(ctx context.Context, paymentMethodID string) error
}

type AccountHandler struct {
	profiles ProfileService
	methods  PaymentMethodStore
	avatars  AvatarStore
	cards    CardDetacher
}

func NewAccountHandler(profiles ProfileService, methods PaymentMethodStore, avatars AvatarStore, cards CardDetacher) *AccountHandler {
	return &AccountHandler{profiles: profiles, methods: methods, avatars: avatars, cards: cards}
}

func (h *AccountHandler) GetProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	p, err := h.profiles.FindProfile(c.Request.Context(), userID)
	if err != nil {
		log.Printf("❌ Profile %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProfile changes only the fields present in the body.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")
	var body struct {
		Name    *string `json:"name"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	p, err := h.profiles.FindProfile(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if p == nil {
		p = &models.Profile{UserID: userID, Email: c.GetString("email")}
	}
	if body.Name != nil {
		if strings.TrimSpace(*body.Name) == "" {
			badRequest(c, "name must not be empty")
			return
		}
		p.Name = strings.TrimSpace(*body.Name)
	}
	if body.Phone != nil {
		p.Phone = strings.TrimSpace(*body.Phone)
	}
	if body.Address != nil {
		p.Address = strings.TrimSpace(*body.Address)
	}
	p.UpdatedAt = time.Now()

	if err := h.profiles.UpsertProfile(ctx, *p); err != nil {
		log.Printf("❌ Saving profile %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage is not configured"})
		return
	}
	userID := c.GetString("user_id")
	file, err := c.FormFile("avatar")
	if err != nil {
		badRequest(c, "avatar file is required")
		return
	}
	if file.Size > maxAvatarBytes {
		badRequest(c, "avatar must be 5MB or less")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		badRequest(c, "avatar must be an image")
		return
	}

	f, err := file.Open()
	if err != nil {
		badRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	url, err := h.avatars.Upload(ctx, userID, file.Filename, f, file.Size, contentType)
	if err != nil {
		log.Printf("❌ Avatar upload for %s: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to upload avatar"})
		return
	}
	if err := h.profiles.SetAvatar(ctx, userID, url); err != nil {
		log.Printf("❌ Saving avatar for %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save avatar"})
		return
	}
	log.Printf("🪣 Avatar stored for %s", userID)
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

func (h *AccountHandler) ListPaymentMethods(c *gin.Context) {
	ms, err := h.methods.ListPaymentMethods(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment methods"})
		return
	}
	if ms == nil {
		ms = []models.SavedPaymentMethod{}
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": ms})
}

func (h *AccountHandler) AddPaymentMethod(c *gin.Context) {
	var body struct {
		StripePaymentMethodID string `json:"stripePaymentMethodId" binding:"required"`
		Brand                 string `json:"brand"`
		Last4                 string `json:"last4"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "stripePaymentMethodId is required")
		return
	}
	saved, err := h.methods.InsertPaymentMethod(c.Request.Context(), models.SavedPaymentMethod{
		UserID:                c.GetString("user_id"),
		StripePaymentMethodID: body.StripePaymentMethodID,
		Brand:                 body.Brand,
		Last4:                 body.Last4,
		CreatedAt:             time.Now(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save payment method"})
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// DeletePaymentMethod forgets the card and detaches it at the processor.
func (h *AccountHandler) DeletePaymentMethod(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	pm, err := h.methods.GetPaymentMethod(ctx, userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load payment method"})
		return
	}
	if pm == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": database.ErrNotFound.Error()})
		return
	}
	if err := h.methods.DeletePaymentMethod(ctx, userID, pm.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete payment method"})
		return
	}
	if h.cards != nil && pm.StripePaymentMethodID != "" {
		if err := h.cards.Detach(ctx, pm.StripePaymentMethodID); err != nil {
			log.Printf("⚠️ Detaching %s: %v", pm.StripePaymentMethodID, err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) SetDefaultPaymentMethod(c *gin.Context) {
	userID := c.GetString("user_id")
	err := h.methods.SetDefault(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update default"})
		return
	}
	ms, _ := h.methods.ListPaymentMethods(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"payment_methods": ms})
}
