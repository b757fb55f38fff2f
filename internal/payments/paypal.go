package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrNoApprovalLink = errors.New("paypal: order has no approval link")

// PayPalClient creates checkout orders and returns the buyer approval URL.
// Capture is not performed here.
type PayPalClient struct {
	baseURL   string
	currency  string
	returnURL string
	cancelURL string
	tokens    oauth2.TokenSource
}

type PayPalConfig struct {
	Credentials *clientcredentials.Config
	BaseURL     string
	Currency    string
	ReturnURL   string
	CancelURL   string
}

func NewPayPalClient(cfg PayPalConfig) *PayPalClient {
	return &PayPalClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		currency:  strings.ToUpper(cfg.Currency),
		returnURL: cfg.ReturnURL,
		cancelURL: cfg.CancelURL,
		tokens:    oauth2.ReuseTokenSource(nil, cfg.Credentials.TokenSource(context.Background())),
	}
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalOrderRequest struct {
	Intent        string `json:"intent"`
	PurchaseUnits []struct {
		Amount paypalAmount `json:"amount"`
	} `json:"purchase_units"`
	ApplicationContext struct {
		ReturnURL  string `json:"return_url"`
		CancelURL  string `json:"cancel_url"`
		UserAction string `json:"user_action"`
	} `json:"application_context"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// CreateOrder registers an order for amount (fixed two decimals) and
// returns the approval URL the buyer must visit.
func (p *PayPalClient) CreateOrder(ctx context.Context, amount string) (string, error) {
	body := paypalOrderRequest{Intent: "CAPTURE"}
	body.PurchaseUnits = append(body.PurchaseUnits, struct {
		Amount paypalAmount `json:"amount"`
	}{Amount: paypalAmount{CurrencyCode: p.currency, Value: amount}})
	body.ApplicationContext.ReturnURL = p.returnURL
	body.ApplicationContext.CancelURL = p.cancelURL
	body.ApplicationContext.UserAction = "PAY_NOW"

	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/checkout/orders", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := oauth2.NewClient(ctx, p.tokens).Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: create order: %w", err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("paypal: create order: status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}

	var order paypalOrderResponse
	if err := json.Unmarshal(raw, &order); err != nil {
		return "", fmt.Errorf("paypal: decode order: %w", err)
	}
	for _, l := range order.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			log.Printf("💳 PayPal order %s created (%s %s)", order.ID, amount, p.currency)
			return l.Href, nil
		}
	}
	return "", ErrNoApprovalLink
}
