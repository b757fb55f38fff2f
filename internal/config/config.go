package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads .env when present; process environment always wins.
func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  No .env file found, using process environment")
	} else {
		log.Println("✅ .env file loaded")
	}
}

type Settings struct {
	Port        string
	BaseURL     string
	CORSOrigins []string

	JWTSecret     string
	SessionSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	PayPal PayPalSettings
	OAuth  OAuthSettings

	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaUsername string
	ScyllaPassword string
	ScyllaTimeout  time.Duration
	ScyllaSSL      bool
	ScyllaCAPath   string

	RedisHost     string
	RedisPassword string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	TaxRate      float64
	PollInterval time.Duration
	CartIdleTTL  time.Duration
}

type PayPalSettings struct {
	ClientID     string
	ClientSecret string
	Mode         string
	ReturnURL    string
	CancelURL    string
}

// BaseURL of the PayPal REST API for the configured mode.
func (p PayPalSettings) BaseURL() string {
	if p.Mode == "live" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

type OAuthSettings struct {
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
}

func FromEnv() Settings {
	baseURL := getEnv("BASE_URL", "http://localhost:8080")
	return Settings{
		Port:        getEnv("PORT", "8080"),
		BaseURL:     baseURL,
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(getEnv("STRIPE_CURRENCY", "cad")),

		PayPal: PayPalSettings{
			ClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
			ClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
			Mode:         getEnv("PAYPAL_MODE", "sandbox"),
			ReturnURL:    getEnv("PAYPAL_RETURN_URL", baseURL+"/paypal/success"),
			CancelURL:    getEnv("PAYPAL_CANCEL_URL", baseURL+"/paypal/cancel"),
		},
		OAuth: OAuthSettings{
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:        getEnv("OAUTH_REDIRECT_URL", "brewdrop://auth/callback"),
		},

		ScyllaHosts:    splitList(os.Getenv("SCYLLA_HOSTS")),
		ScyllaKeyspace: getEnv("SCYLLA_KEYSPACE", "brewdrop"),
		ScyllaUsername: os.Getenv("SCYLLA_USERNAME"),
		ScyllaPassword: os.Getenv("SCYLLA_PASSWORD"),
		ScyllaTimeout:  getDuration("SCYLLA_TIMEOUT", 5*time.Second),
		ScyllaSSL:      strings.ToLower(os.Getenv("SCYLLA_SSL_ENABLED")) == "true",
		ScyllaCAPath:   os.Getenv("SCYLLA_SSL_CA_PATH"),

		RedisHost:     getEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "brewdrop-avatars"),
		MinIOUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "noreply@brewdrop.app"),

		TaxRate:      getFloat("TAX_RATE", 0.13),
		PollInterval: getDuration("POLL_INTERVAL", 5*time.Second),
		CartIdleTTL:  getDuration("CART_IDLE_TTL", 2*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
