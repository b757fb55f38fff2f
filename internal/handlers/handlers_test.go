package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"brewdrop_back_end/internal/auth"
	"brewdrop_back_end/internal/cache"
	"brewdrop_back_end/internal/cart"
	"brewdrop_back_end/internal/checkout"
	"brewdrop_back_end/internal/database"
	"brewdrop_back_end/internal/handlers"
	"brewdrop_back_end/internal/models"
	"brewdrop_back_end/internal/orders"
	"brewdrop_back_end/internal/payments"
	"brewdrop_back_end/internal/pricing"
	"brewdrop_back_end/internal/routes"
	"brewdrop_back_end/internal/status"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/markbates/goth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	mu       sync.Mutex
	created  int
	detached []string
}

func (g *stubGateway) CreateIntent(_ context.Context, p payments.IntentParams) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created++
	id := fmt.Sprintf("pi_%d", g.created)
	return &payments.Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method", Amount: p.AmountInCents, CustomerID: p.CustomerID}, nil
}

func (g *stubGateway) RetrieveIntent(_ context.Context, id string) (*payments.Intent, error) {
	return &payments.Intent{ID: id, Status: "succeeded", CustomerID: "cus_1", PaymentMethodID: "pm_card", CardBrand: "visa", CardLast4: "4242"}, nil
}

func (g *stubGateway) CreateCustomer(context.Context, string, string, string) (string, error) {
	return "cus_1", nil
}

func (g *stubGateway) DetachPaymentMethod(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detached = append(g.detached, id)
	return nil
}

type stubPayPal struct {
	amounts []string
	err     error
}

func (p *stubPayPal) CreateOrder(_ context.Context, amount string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.amounts = append(p.amounts, amount)
	return "https://paypal.test/checkoutnow?token=EC-9", nil
}

type stubAvatars struct{ got []byte }

func (a *stubAvatars) Upload(_ context.Context, userID, filename string, r io.Reader, _ int64, _ string) (string, error) {
	a.got, _ = io.ReadAll(r)
	return "http://minio.test/avatars/" + userID + "/" + filename, nil
}

// stubSignIn decides the outcome from the callback URL.
type stubSignIn struct{}

func (stubSignIn) AuthURL(state string) string { return "https://accounts.test/auth?state=" + state }

func (stubSignIn) Exchange(_ context.Context, callback string) auth.Result {
	switch {
	case strings.Contains(callback, "error=access_denied"):
		return auth.Cancelled{}
	case strings.Contains(callback, "code=good"):
		return auth.Success{Session: auth.Session{Token: "tok", UserID: "u-9", Provider: "google"}}
	}
	return auth.Failed{Reason: "invalid_grant"}
}

func (stubSignIn) CompleteGoth(context.Context, goth.User) (*auth.Session, error) {
	return &auth.Session{Token: "tok"}, nil
}

type testServer struct {
	router  *gin.Engine
	store   *database.MemoryStore
	gateway *stubGateway
	paypal  *stubPayPal
	avatars *stubAvatars
	issuer  *auth.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ts := &testServer{
		store:   database.NewMemoryStore(),
		gateway: &stubGateway{},
		paypal:  &stubPayPal{},
		avatars: &stubAvatars{},
		issuer:  auth.NewIssuer("test-secret", time.Hour),
	}
	carts := cart.NewRegistry(0)
	intents := payments.NewIntentService(payments.IntentServiceConfig{
		Gateway:   ts.gateway,
		Orders:    ts.store,
		Methods:   ts.store,
		Customers: ts.store,
		Replays:   cache.NewReplays(rdb, 0),
		TaxRate:   pricing.DefaultTaxRate,
	})
	orch := checkout.New(checkout.Deps{
		Sessions:       cache.NewSessions(rdb, 0),
		Carts:          carts,
		Profiles:       ts.store,
		Contacts:       ts.store,
		Orders:         ts.store,
		Intents:        intents,
		Cards:          intents,
		PayPal:         ts.paypal,
		PaymentMethods: ts.store,
	}, checkout.Options{})

	ts.router = gin.New()
	routes.RegisterRoutes(ts.router, routes.Handlers{
		Cart:     handlers.NewCartHandler(carts, pricing.DefaultTaxRate),
		Checkout: handlers.NewCheckoutHandler(orch),
		Payments: handlers.NewPaymentHandler(intents, ts.paypal, ""),
		Orders:   handlers.NewOrderHandler(status.NewPoller(ts.store, ts.store, 20*time.Millisecond)),
		Account:  handlers.NewAccountHandler(ts.store, ts.store, ts.avatars, intents),
		Auth:     handlers.NewAuthHandler(stubSignIn{}),
	}, routes.Options{Verifier: ts.issuer})
	return ts
}

func (ts *testServer) token(t *testing.T, userID string) string {
	tok, err := ts.issuer.Issue(userID, userID+"@example.com")
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// fillCart opens a cart with 2 x 4.50 + 1 x 3.00 (subtotal 12.00).
func (ts *testServer) fillCart(t *testing.T) string {
	w := ts.do(t, http.MethodPost, "/api/cart", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	token := decode(t, w)["token"].(string)

	for _, item := range []gin.H{
		{"drink_id": "latte", "name": "Latte", "price": 4.5, "quantity": 2, "milkType": "oat"},
		{"drink_id": "drip", "name": "Drip", "price": 3.0, "quantity": 1},
	} {
		w := ts.do(t, http.MethodPost, "/api/cart/"+token+"/items", item, "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	return token
}

func TestCart(t *testing.T) {
	ts := newTestServer(t)
	token := ts.fillCart(t)

	w := ts.do(t, http.MethodPost, "/api/cart/"+token+"/items", gin.H{"drink_id": "x", "name": "X", "price": 1, "milkType": "soy"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/cart/"+token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	quote := body["quote"].(map[string]any)
	assert.InDelta(t, 12.0, quote["subtotal"], 0.001)
	assert.InDelta(t, 1.56, quote["tax"], 0.001)
	assert.InDelta(t, 13.56, quote["total"], 0.001)
	assert.EqualValues(t, 1356, quote["amountInCents"])

	items := body["items"].([]any)
	require.Len(t, items, 2)
	id := items[1].(map[string]any)["id"].(string)

	w = ts.do(t, http.MethodPatch, "/api/cart/"+token+"/items/"+id, gin.H{"quantity": 0}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	w = ts.do(t, http.MethodDelete, "/api/cart/"+token+"/items/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/cart/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "menu", decode(t, w)["redirect"])
}

func TestGuestCashCheckout(t *testing.T) {
	ts := newTestServer(t)
	cartToken := ts.fillCart(t)

	w := ts.do(t, http.MethodPost, "/api/checkout", gin.H{"cartToken": cartToken}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)
	base := "/api/checkout/" + id

	w = ts.do(t, http.MethodPost, base+"/method", gin.H{"method": "pickup", "name": "Grace"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "contact_capture", decode(t, w)["state"])

	w = ts.do(t, http.MethodPost, base+"/payment", gin.H{"paymentMethod": "cash"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, base+"/contact", gin.H{"phone": "555-0100", "email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, base+"/contact", gin.H{"phone": "555-0100"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, base+"/payment", gin.H{"paymentMethod": "cash"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cash_flow", decode(t, w)["state"])

	w = ts.do(t, http.MethodPost, base+"/cash", gin.H{"policyAccepted": false}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ts.store.Orders())

	w = ts.do(t, http.MethodPost, base+"/cash", gin.H{"policyAccepted": true}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, true, out["navigate"])
	orderID := out["session"].(map[string]any)["order_id"].(string)
	require.NotEmpty(t, orderID)

	assert.Len(t, ts.store.Orders(), 2)
	require.Len(t, ts.store.Contacts(), 1)
	assert.Equal(t, "555-0100", ts.store.Contacts()[0].Phone)

	w = ts.do(t, http.MethodGet, "/api/cart/"+cartToken, nil, "")
	assert.Empty(t, decode(t, w)["items"])

	w = ts.do(t, http.MethodGet, "/api/orders/"+orderID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)
	assert.Equal(t, "confirming", view["state"])
	assert.InDelta(t, 13.56, view["total"], 0.011)

	w = ts.do(t, http.MethodGet, "/api/orders/"+orderID+"/qrcode", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestCheckoutErrors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/cart", nil, "")
	empty := decode(t, w)["token"].(string)
	w = ts.do(t, http.MethodPost, "/api/checkout", gin.H{"cartToken": empty}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "menu", body["redirect"])
	assert.Equal(t, "validation", body["kind"])

	w = ts.do(t, http.MethodGet, "/api/checkout/unknown", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cartToken := ts.fillCart(t)
	w = ts.do(t, http.MethodPost, "/api/checkout", gin.H{"cartToken": cartToken}, ts.token(t, "owner"))
	id := decode(t, w)["id"].(string)

	w = ts.do(t, http.MethodGet, "/api/checkout/"+id, nil, ts.token(t, "someone-else"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, http.MethodGet, "/api/checkout/"+id, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// cash from the wrong state is a conflict
	w = ts.do(t, http.MethodPost, "/api/checkout/"+id+"/cash", gin.H{"policyAccepted": true}, ts.token(t, "owner"))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthenticatedCardCheckout(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, ts.store.UpsertProfile(ctx, models.Profile{UserID: "user-1", Name: "Ada", Email: "ada@example.com", Phone: "555-0199"}))
	tok := ts.token(t, "user-1")

	w := ts.do(t, http.MethodPost, "/api/checkout", gin.H{"cartToken": ts.fillCart(t)}, tok)
	require.Equal(t, http.StatusCreated, w.Code)
	base := "/api/checkout/" + decode(t, w)["id"].(string)

	w = ts.do(t, http.MethodPost, base+"/method", gin.H{"method": "pickup"}, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "payment_method_selection", decode(t, w)["state"])

	w = ts.do(t, http.MethodPost, base+"/card/confirm", gin.H{"result": "success"}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, base+"/payment", gin.H{"paymentMethod": "card", "tip": 1.0}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 14.56, decode(t, w)["quote"].(map[string]any)["total"], 0.001)

	w = ts.do(t, http.MethodPost, base+"/card/prepare", nil, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	prep := decode(t, w)
	assert.Equal(t, "pi_1_secret", prep["clientSecret"])
	assert.Len(t, ts.store.Orders(), 2)

	w = ts.do(t, http.MethodPost, base+"/card/confirm", gin.H{"result": "Failed", "error": "card declined"}, tok)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	failed := decode(t, w)
	assert.Equal(t, "card declined", failed["error"])
	assert.Equal(t, true, failed["retry"])

	w = ts.do(t, http.MethodPost, base+"/card/confirm", gin.H{"result": "Canceled"}, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["cancelled"])

	w = ts.do(t, http.MethodPost, base+"/card/confirm", gin.H{"result": "Completed"}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, false, out["navigate"])
	assert.Equal(t, "save_card_decision", out["session"].(map[string]any)["state"])

	w = ts.do(t, http.MethodPost, base+"/card/save", gin.H{"keep": false}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["navigate"])
	assert.Contains(t, ts.gateway.detached, "pm_card")

	methods, err := ts.store.ListPaymentMethods(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestPayPalCheckout(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/checkout", gin.H{"cartToken": ts.fillCart(t)}, "")
	base := "/api/checkout/" + decode(t, w)["id"].(string)
	ts.do(t, http.MethodPost, base+"/method", gin.H{"method": "pickup", "name": "Lin"}, "")
	ts.do(t, http.MethodPost, base+"/contact", gin.H{"phone": "555-0123"}, "")

	w = ts.do(t, http.MethodPost, base+"/payment", gin.H{"paymentMethod": "paypal"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, base+"/paypal", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://paypal.test/checkoutnow?token=EC-9", decode(t, w)["approvalUrl"])
	assert.Equal(t, []string{"13.56"}, ts.paypal.amounts)

	w = ts.do(t, http.MethodPost, base+"/paypal/nav", gin.H{"url": "https://www.paypal.com/checkoutnow"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	nav := decode(t, w)
	assert.Equal(t, "pending", nav["status"])
	assert.Equal(t, false, nav["close"])

	w = ts.do(t, http.MethodPost, base+"/paypal/nav", gin.H{"url": "https://brewdrop.app/paypal/cancel?token=EC-9"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	nav = decode(t, w)
	assert.Equal(t, "cancelled", nav["status"])
	assert.Equal(t, true, nav["close"])
}

func intentBody() gin.H {
	return gin.H{
		"items": []gin.H{
			{"drink_id": "latte", "name": "Latte", "price": 4.5, "quantity": 2},
			{"drink_id": "drip", "name": "Drip", "price": 3.0, "quantity": 1},
		},
		"customerName": "Grace",
		"method":       "pickup",
	}
}

func TestUnpriceableAmountsRejected(t *testing.T) {
	ts := newTestServer(t)

	body := intentBody()
	body["tax"] = 1e308
	body["tip"] = 1e308
	w := ts.do(t, http.MethodPost, "/api/payments/intent", body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Zero(t, ts.gateway.created)

	cartToken := ts.fillCart(t)
	w = ts.do(t, http.MethodGet, "/api/cart/"+cartToken+"?tax=Inf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPost, "/api/cart/"+cartToken+"/items", gin.H{"drink_id": "x", "name": "X", "price": 1e308}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/checkout", gin.H{"cartToken": cartToken}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	base := "/api/checkout/" + decode(t, w)["id"].(string)
	w = ts.do(t, http.MethodPost, base+"/method", gin.H{"method": "pickup", "name": "Grace"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, base+"/contact", gin.H{"phone": "555-0100"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, base+"/payment", gin.H{"paymentMethod": "card", "tax": 1e308, "tip": 1e308}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "validation", decode(t, w)["kind"])

	w = ts.do(t, http.MethodPost, base+"/payment", gin.H{"paymentMethod": "card", "tip": 2}, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPaymentIntentIdempotency(t *testing.T) {
	ts := newTestServer(t)

	post := func(body gin.H, key string) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/api/payments/intent", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		return w
	}

	first := post(intentBody(), "attempt-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := post(intentBody(), "attempt-1")
	require.Equal(t, http.StatusOK, second.Code)

	a, b := decode(t, first), decode(t, second)
	assert.Equal(t, "13.56", a["amount"])
	assert.Equal(t, a["paymentIntentId"], b["paymentIntentId"])
	assert.Equal(t, 1, ts.gateway.created)
	assert.Len(t, ts.store.Orders(), 2)

	body := intentBody()
	body["amountInCents"] = 1400
	w := post(body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(gin.H{"items": []gin.H{}}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookAbandonsRows(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/payments/intent", intentBody(), "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	orderID := resp["orderId"].(string)

	w = ts.do(t, http.MethodGet, "/api/orders/"+orderID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	event := fmt.Sprintf(`{"id":"evt_1","type":"payment_intent.canceled","data":{"object":{"id":%q,"object":"payment_intent"}}}`, resp["paymentIntentId"])
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(event))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	w = ts.do(t, http.MethodGet, "/api/orders/"+orderID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, true, decode(t, w)["partial"])

	req = httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayPalOrderEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/payments/paypal", gin.H{"amount": "13.5"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["approvalUrl"])
	assert.Equal(t, []string{"13.50"}, ts.paypal.amounts)

	w = ts.do(t, http.MethodPost, "/api/payments/paypal", gin.H{"amount": "-2"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/payments/paypal", gin.H{"amount": "1e308"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.paypal.err = errors.New("paypal create order: 422 UNPROCESSABLE_ENTITY PAYEE_ACCOUNT_RESTRICTED")
	w = ts.do(t, http.MethodPost, "/api/payments/paypal", gin.H{"amount": "13.5"}, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "PAYEE_ACCOUNT_RESTRICTED")
}

type failingSettler struct{ err error }

func (failingSettler) Create(context.Context, payments.IntentRequest, string) (*payments.IntentResponse, error) {
	return nil, errors.New("not used")
}

func (f failingSettler) Settle(context.Context, string, bool) error { return f.err }

func TestWebhookSettleFailureIsRetried(t *testing.T) {
	gin.SetMode(gin.TestMode)
	event := `{"id":"evt_9","type":"payment_intent.succeeded","data":{"object":{"id":"pi_9","object":"payment_intent"}}}`

	tests := []struct {
		err  error
		want int
	}{
		{errors.New("gocql: no hosts available in the pool"), http.StatusInternalServerError},
		{fmt.Errorf("settle pi_9: %w", payments.ErrNoIntentRows), http.StatusNotFound},
		{nil, http.StatusOK},
	}
	for _, tt := range tests {
		r := gin.New()
		r.POST("/webhook", handlers.NewPaymentHandler(failingSettler{err: tt.err}, &stubPayPal{}, "").Webhook)

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(event)))
		assert.Equal(t, tt.want, rec.Code, rec.Body.String())
	}
}

func TestOrderNotFound(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/api/orders/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/orders/not-a-uuid/qrcode", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// deliveredOrder stores a two-line order the shop has already sent out.
func (ts *testServer) deliveredOrder(t *testing.T) string {
	items := []models.CartItem{
		{ID: "a", DrinkID: "latte", Name: "Latte", Price: 4.5, Quantity: 2},
		{ID: "b", DrinkID: "drip", Name: "Drip", Price: 3, Quantity: 1},
	}
	rows := orders.Build(items, pricing.NewQuote(items, pricing.Inputs{}), orders.Group{
		CustomerName:  "Grace",
		Method:        models.MethodDelivery,
		Address:       "1 Front St",
		PaymentMethod: models.PaymentCash,
		Status:        models.RowStatusPlaced,
		CreatedAt:     time.Now(),
	})
	require.NoError(t, ts.store.InsertOrderRows(context.Background(), rows))
	yes := true
	ts.store.UpdateOrder(rows[0].ID, func(r *models.OrderRow) { r.Delivered = &yes })
	return rows[0].ID.String()
}

type liveReply struct {
	Type  string       `json:"type"`
	State string       `json:"state"`
	Error string       `json:"error"`
	View  *status.View `json:"view"`
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) liveReply {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var m liveReply
		require.NoError(t, conn.ReadJSON(&m))
		if m.Type == typ {
			return m
		}
	}
}

func TestOrderLive(t *testing.T) {
	ts := newTestServer(t)
	orderID := ts.deliveredOrder(t)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/" + orderID + "/live?lat=43.6629&lng=-79.3957"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readUntil(t, conn, "status")
	require.NotNil(t, first.View)
	assert.Equal(t, status.EnRoute, first.View.State)
	require.NotNil(t, first.View.ETA)
	assert.Equal(t, 3, *first.View.ETA)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "rating", "stars": 5}))
	rejected := readUntil(t, conn, "error")
	assert.Equal(t, status.ErrNotReceived.Error(), rejected.Error)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "received"}))
	assert.Equal(t, string(status.Rating), readUntil(t, conn, "state").State)

	require.NoError(t, conn.WriteJSON(gin.H{"type": "rating", "stars": 5, "comment": "hot and fast"}))
	readUntil(t, conn, "closed")

	err = ts.store.InsertRating(context.Background(), models.Rating{OrderID: orderID, Stars: 1})
	assert.ErrorIs(t, err, database.ErrAlreadyRated)
}

func TestAccount(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-7")

	w := ts.do(t, http.MethodGet, "/api/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/profile", nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPut, "/api/profile", gin.H{"name": "  Ada L  ", "phone": "555-0001"}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.do(t, http.MethodGet, "/api/profile", nil, tok)
	prof := decode(t, w)
	assert.Equal(t, "Ada L", prof["name"])
	assert.Equal(t, "user-7@example.com", prof["email"])

	w = ts.do(t, http.MethodPut, "/api/profile", gin.H{"name": " "}, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var ids []string
	for _, pm := range []string{"pm_a", "pm_b"} {
		w := ts.do(t, http.MethodPost, "/api/payment-methods", gin.H{"stripePaymentMethodId": pm, "brand": "visa", "last4": "4242"}, tok)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode(t, w)["id"].(string))
	}

	w = ts.do(t, http.MethodPost, "/api/payment-methods/"+ids[1]+"/default", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	defaults := 0
	for _, m := range decode(t, w)["payment_methods"].([]any) {
		pm := m.(map[string]any)
		if pm["is_default"] == true {
			defaults++
			assert.Equal(t, ids[1], pm["id"])
		}
	}
	assert.Equal(t, 1, defaults)

	w = ts.do(t, http.MethodDelete, "/api/payment-methods/"+ids[0], nil, tok)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, ts.gateway.detached, "pm_a")

	w = ts.do(t, http.MethodDelete, "/api/payment-methods/"+ids[0], nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPost, "/api/payment-methods/nope/default", nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/payment-methods", nil, ts.token(t, "other"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["payment_methods"])
}

func TestAvatarUpload(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "user-8")

	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		part.Write([]byte("\x89PNG fake"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		return w
	}

	w := upload("text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("image/png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "http://minio.test/avatars/user-8/me.png", decode(t, w)["avatar_url"])
	assert.Equal(t, []byte("\x89PNG fake"), ts.avatars.got)

	p, err := ts.store.FindProfile(context.Background(), "user-8")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "http://minio.test/avatars/user-8/me.png", p.AvatarURL)
}

func TestAuthCallback(t *testing.T) {
	ts := newTestServer(t)
	call := func(callback string) *httptest.ResponseRecorder {
		return ts.do(t, http.MethodGet, "/api/auth/callback?url="+url.QueryEscape(callback), nil, "")
	}

	w := call("brewdrop://auth/callback?error=access_denied")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["cancelled"])

	w = call("brewdrop://auth/callback?code=good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", decode(t, w)["token"])

	w = call("brewdrop://auth/callback?code=bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_grant", decode(t, w)["error"])

	w = ts.do(t, http.MethodGet, "/api/auth/login", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decode(t, w)
	assert.Contains(t, login["url"], login["state"].(string))
}
