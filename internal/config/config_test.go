package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TAX_RATE", "")
	t.Setenv("PAYPAL_MODE", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("STRIPE_CURRENCY", "")

	s := FromEnv()
	assert.Equal(t, "8080", s.Port)
	assert.Equal(t, 0.13, s.TaxRate)
	assert.Equal(t, 5*time.Second, s.PollInterval)
	assert.Equal(t, "cad", s.Currency)
	assert.Equal(t, "https://api-m.sandbox.paypal.com", s.PayPal.BaseURL())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TAX_RATE", "0.05")
	t.Setenv("PAYPAL_MODE", "live")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2,")
	t.Setenv("STRIPE_CURRENCY", "USD")

	s := FromEnv()
	assert.Equal(t, 0.05, s.TaxRate)
	assert.Equal(t, "https://api-m.paypal.com", s.PayPal.BaseURL())
	assert.Equal(t, 2*time.Second, s.PollInterval)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, s.ScyllaHosts)
	assert.Equal(t, "usd", s.Currency)
}

func TestPayPalCredentials(t *testing.T) {
	cc := PayPalCredentials(PayPalSettings{ClientID: "id", ClientSecret: "secret"})
	assert.Equal(t, "https://api-m.sandbox.paypal.com/v1/oauth2/token", cc.TokenURL)
}
