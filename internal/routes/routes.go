package routes

import (
	"time"

	"brewdrop_back_end/internal/handlers"
	"brewdrop_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Payments *handlers.PaymentHandler
	Orders   *handlers.OrderHandler
	Account  *handlers.AccountHandler
	Auth     *handlers.AuthHandler
}

type Options struct {
	Verifier    middleware.TokenVerifier
	Limiter     *middleware.RateLimiter // nil disables rate limiting
	CORSOrigins []string
}

func RegisterRoutes(r *gin.Engine, h Handlers, opts Options) {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.IdempotencyHeader, "Stripe-Signature"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 || (len(opts.CORSOrigins) == 1 && opts.CORSOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = opts.CORSOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// Stripe calls this one; no rate limit, no auth
	r.POST("/api/payments/webhook", h.Payments.Webhook)

	api := r.Group("/api")
	if opts.Limiter != nil {
		api.Use(opts.Limiter.APIRateLimit())
	}
	optional := middleware.AuthOptional(opts.Verifier)
	required := middleware.AuthRequired(opts.Verifier)

	// submit prepends the checkout rate limit to submission endpoints.
	submit := func(hs ...gin.HandlerFunc) []gin.HandlerFunc {
		if opts.Limiter == nil {
			return hs
		}
		return append([]gin.HandlerFunc{opts.Limiter.CheckoutRateLimit()}, hs...)
	}

	// Cart
	cart := api.Group("/cart")
	{
		cart.POST("", h.Cart.Open)
		cart.GET("/:token", h.Cart.Get)
		cart.DELETE("/:token", h.Cart.Clear)
		cart.POST("/:token/items", h.Cart.AddItem)
		cart.PATCH("/:token/items/:id", h.Cart.UpdateItem)
		cart.DELETE("/:token/items/:id", h.Cart.RemoveItem)
	}

	// Checkout
	co := api.Group("/checkout", optional, middleware.PaymentAudit())
	{
		co.POST("", h.Checkout.Begin)
		co.GET("/:id", h.Checkout.Get)
		co.POST("/:id/method", h.Checkout.SelectMethod)
		co.POST("/:id/contact", h.Checkout.CaptureContact)
		co.POST("/:id/payment", h.Checkout.SelectPayment)
		co.POST("/:id/card/prepare", submit(h.Checkout.PrepareCard)...)
		co.POST("/:id/card/confirm", h.Checkout.ConfirmCard)
		co.POST("/:id/card/save", h.Checkout.SaveCard)
		co.POST("/:id/cash", submit(h.Checkout.SubmitCash)...)
		co.POST("/:id/paypal", submit(h.Checkout.StartPayPal)...)
		co.POST("/:id/paypal/nav", h.Checkout.PayPalNavigation)
	}

	// Payments
	pay := api.Group("/payments", optional, middleware.PaymentAudit())
	{
		pay.POST("/intent", submit(middleware.IdempotencyKey(), h.Payments.CreateIntent)...)
		pay.POST("/paypal", submit(h.Payments.CreatePayPalOrder)...)
	}

	// Orders
	orders := api.Group("/orders", optional)
	{
		orders.GET("/:id", h.Orders.Get)
		orders.GET("/:id/live", h.Orders.Live)
		orders.GET("/:id/qrcode", h.Orders.QRCode)
	}

	// Account
	methods := api.Group("/payment-methods", required)
	{
		methods.GET("", h.Account.ListPaymentMethods)
		methods.POST("", h.Account.AddPaymentMethod)
		methods.DELETE("/:id", h.Account.DeletePaymentMethod)
		methods.POST("/:id/default", h.Account.SetDefaultPaymentMethod)
	}
	profile := api.Group("/profile", required)
	{
		profile.GET("", h.Account.GetProfile)
		profile.PUT("", h.Account.UpdateProfile)
		profile.POST("/avatar", h.Account.UploadAvatar)
	}

	// Auth
	auth := api.Group("/auth")
	{
		auth.GET("/login", h.Auth.Login)
		auth.GET("/callback", h.Auth.Callback)
		auth.GET("/:provider", h.Auth.BeginAuth)
		auth.GET("/:provider/callback", h.Auth.CallbackAuth)
	}
}
