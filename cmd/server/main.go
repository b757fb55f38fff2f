package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brewdrop_back_end/internal/auth"
	"brewdrop_back_end/internal/cache"
	"brewdrop_back_end/internal/cart"
	"brewdrop_back_end/internal/checkout"
	"brewdrop_back_end/internal/config"
	"brewdrop_back_end/internal/database"
	"brewdrop_back_end/internal/handlers"
	"brewdrop_back_end/internal/middleware"
	"brewdrop_back_end/internal/notify"
	"brewdrop_back_end/internal/payments"
	"brewdrop_back_end/internal/routes"
	"brewdrop_back_end/internal/status"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

func main() {
	config.Load()
	cfg := config.FromEnv()

	if cfg.StripeSecretKey == "" {
		log.Fatal("❌ Cannot initialise Stripe: STRIPE_SECRET_KEY missing")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET missing")
	}
	gateway := payments.NewStripeGateway(cfg.StripeSecretKey)
	log.Println("✅ Stripe initialised")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo := openRepository(cfg)

	rdb, err := cache.NewRedis(ctx, cfg.RedisHost, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("❌ Redis: %v", err)
	}
	defer rdb.Close()

	profiles := cache.NewProfiles(rdb, repo)
	carts := cart.NewRegistry(cfg.CartIdleTTL)
	go carts.RunJanitor(ctx, 10*time.Minute)

	intents := payments.NewIntentService(payments.IntentServiceConfig{
		Gateway:   gateway,
		Orders:    repo,
		Methods:   repo,
		Customers: profiles,
		Replays:   cache.NewReplays(rdb, 0),
		Currency:  cfg.Currency,
		TaxRate:   cfg.TaxRate,
	})
	paypal := payments.NewPayPalClient(payments.PayPalConfig{
		Credentials: config.PayPalCredentials(cfg.PayPal),
		BaseURL:     cfg.PayPal.BaseURL(),
		Currency:    cfg.Currency,
		ReturnURL:   cfg.PayPal.ReturnURL,
		CancelURL:   cfg.PayPal.CancelURL,
	})
	mailer := notify.NewMailer(notify.MailerConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})

	orch := checkout.New(checkout.Deps{
		Sessions:       cache.NewSessions(rdb, 0),
		Carts:          carts,
		Profiles:       profiles,
		Contacts:       repo,
		Orders:         repo,
		Intents:        intents,
		Cards:          intents,
		PayPal:         paypal,
		PaymentMethods: repo,
		Notifier:       mailer,
	}, checkout.Options{TaxRate: cfg.TaxRate})

	issuer := auth.NewIssuer(cfg.JWTSecret, 0)
	exchanger := auth.NewExchanger("google", config.GoogleOAuthConfig(cfg.OAuth), auth.GoogleUserInfoURL, profiles, issuer)
	initOAuthProviders(cfg)

	var avatars handlers.AvatarStore
	if cfg.MinIOEndpoint != "" {
		minioCfg := database.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		}
		client, err := database.ConnectMinIO(ctx, minioCfg)
		if err != nil {
			log.Fatalf("❌ MinIO: %v", err)
		}
		avatars = database.NewAvatars(client, minioCfg)
	} else {
		log.Println("⚠️ MINIO_ENDPOINT not set, avatar uploads disabled")
	}

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Handlers{
		Cart:     handlers.NewCartHandler(carts, cfg.TaxRate),
		Checkout: handlers.NewCheckoutHandler(orch),
		Payments: handlers.NewPaymentHandler(intents, paypal, cfg.StripeWebhookSecret),
		Orders:   handlers.NewOrderHandler(status.NewPoller(repo, repo, cfg.PollInterval)),
		Account:  handlers.NewAccountHandler(profiles, repo, avatars, intents),
		Auth:     handlers.NewAuthHandler(exchanger),
	}, routes.Options{
		Verifier:    issuer,
		Limiter:     middleware.NewRateLimiter(rdb),
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("🚀 BrewDrop server listening on port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Shutdown: %v", err)
	}
}

// openRepository connects to ScyllaDB, or keeps everything in memory when
// no hosts are configured.
func openRepository(cfg config.Settings) database.Repository {
	if len(cfg.ScyllaHosts) == 0 {
		log.Println("⚠️ SCYLLA_HOSTS not set, using in-memory store (data is lost on restart)")
		return database.NewMemoryStore()
	}
	session, err := database.ConnectScylla(database.ScyllaConfigFrom(cfg))
	if err != nil {
		log.Fatalf("❌ ScyllaDB: %v", err)
	}
	if err := database.Migrate(session); err != nil {
		log.Fatalf("❌ ScyllaDB: %v", err)
	}
	return database.NewStore(session)
}

func initOAuthProviders(cfg config.Settings) {
	if cfg.SessionSecret == "" {
		log.Println("⚠️ SESSION_SECRET missing, web sign-in disabled")
		return
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(86400 * 30)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   os.Getenv("GIN_MODE") == "release",
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if p, ok := req.Context().Value(handlers.ProviderKey).(string); ok && p != "" {
			return p, nil
		}
		if p := req.URL.Query().Get("provider"); p != "" {
			return p, nil
		}
		return "", errors.New("provider not found")
	}

	if cfg.OAuth.GoogleClientID == "" || cfg.OAuth.GoogleClientSecret == "" {
		log.Println("⚠️ No OAuth provider configured")
		return
	}
	goth.UseProviders(google.New(
		cfg.OAuth.GoogleClientID,
		cfg.OAuth.GoogleClientSecret,
		cfg.BaseURL+"/api/auth/google/callback",
	))
	log.Println("✅ Google OAuth enabled")
}
