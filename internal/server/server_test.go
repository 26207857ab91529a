package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gallery-checkout/internal/client"
	"gallery-checkout/internal/config"
	"gallery-checkout/internal/currency"
	"gallery-checkout/internal/dto"
	"gallery-checkout/internal/model"
	"gallery-checkout/internal/repository"
	"gallery-checkout/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyID     = "rzp_test_key"
	testKeySecret = "key_secret"
)

// fakeRazorpay is an in-memory stand-in for the provider REST API.
type fakeRazorpay struct {
	mu       sync.Mutex
	orders   map[string]model.RazorpayOrder
	payments map[string]model.RazorpayPayment
}

func newFakeRazorpay(t *testing.T) (*fakeRazorpay, *httptest.Server) {
	t.Helper()

	f := &fakeRazorpay{
		orders:   map[string]model.RazorpayOrder{},
		payments: map[string]model.RazorpayPayment{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != testKeyID || pass != testKeySecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/orders":
			var req client.CreateOrderRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			order := model.RazorpayOrder{
				ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
				Entity:   "order",
				Amount:   req.Amount,
				Currency: req.Currency,
				Receipt:  req.Receipt,
				Status:   "created",
				Notes:    model.Notes(req.Notes),
			}
			f.orders[order.ID] = order
			json.NewEncoder(w).Encode(order)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/orders/"):
			order, ok := f.orders[strings.TrimPrefix(r.URL.Path, "/v1/orders/")]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
				return
			}
			json.NewEncoder(w).Encode(order)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payments/"):
			payment, ok := f.payments[strings.TrimPrefix(r.URL.Path, "/v1/payments/")]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
				return
			}
			json.NewEncoder(w).Encode(payment)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return f, srv
}

func (f *fakeRazorpay) pay(orderID, paymentID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[paymentID] = model.RazorpayPayment{ID: paymentID, Entity: "payment", Status: status, OrderID: orderID}
}

type testEnv struct {
	server   *Server
	provider *fakeRazorpay
	orders   repository.OrderRepository
}

func newTestEnv(t *testing.T, rzCfg *config.Razorpay, rl config.RateLimit) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := client.OpenDatabase(config.Database{
		Driver: "sqlite",
		URL:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	provider, providerSrv := newFakeRazorpay(t)
	if rzCfg == nil {
		rzCfg = &config.Razorpay{KeyID: testKeyID, KeySecret: testKeySecret, WebhookSecret: "whsec"}
	}
	rzCfg.BaseApiURL = providerSrv.URL

	converter, err := currency.NewConverter("INR", map[string]float64{"USD": 0.012, "JPY": 1.78}, nil, time.Hour, log)
	require.NoError(t, err)

	orderRepo := repository.NewOrderRepository(db)
	paymentService := service.NewPaymentService(
		db,
		client.NewRazorpayClient(rzCfg),
		converter.Base(),
		orderRepo,
		repository.NewPaymentEventRepository(db),
		log,
	)
	artworkService := service.NewArtworkService(repository.NewArtworkRepository(db), log)

	if rl.RPS == 0 {
		rl = config.RateLimit{RPS: 1000, Burst: 1000}
	}

	return &testEnv{
		server:   NewServer(paymentService, artworkService, converter, rl, log),
		provider: provider,
		orders:   orderRepo,
	}
}

func (e *testEnv) do(method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.server.echo.ServeHTTP(rec, req)
	return rec
}

const cartBody = `{
	"items": [
		{"artwork": {"id": "a1", "title": "Monsoon", "price": 1000}, "quantity": 1},
		{"artwork": {"id": "a2", "title": "Harbour", "price": "250.00"}, "quantity": 2}
	],
	"totalAmount": 1500,
	"orderId": "ord1"
}`

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})

	rec := env.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})

	for _, path := range []string{"/create-order", "/verify-payment"} {
		rec := env.do(http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Body.String(), path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"), path)
	}
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})

	rec := env.do(http.MethodPost, "/create-order", cartBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(150000), created.Amount)
	assert.Equal(t, "INR", created.Currency)
	assert.Equal(t, "order_ord1", created.Receipt)
	assert.Equal(t, testKeyID, created.KeyID)

	env.provider.pay(created.ID, "pay_1", model.PaymentStatusCaptured)
	verifyBody, _ := json.Marshal(dto.VerifyPaymentRequest{
		ProviderOrderID:   created.ID,
		ProviderPaymentID: "pay_1",
		Signature:         client.Sign([]byte(testKeySecret), []byte(created.ID+"|pay_1")),
	})

	for i := 0; i < 2; i++ {
		rec = env.do(http.MethodPost, "/verify-payment", string(verifyBody))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"success":true,"order_id":"ord1","payment_id":"pay_1"}`, rec.Body.String())
	}

	order, err := env.orders.FindByID(t.Context(), nil, "ord1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, order.Status)
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})

	rec := env.do(http.MethodPost, "/create-order", cartBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var created dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	env.provider.pay(created.ID, "pay_1", model.PaymentStatusCaptured)

	body := `{"razorpay_order_id":"` + created.ID + `","razorpay_payment_id":"pay_1","razorpay_signature":"deadbeef"}`
	rec = env.do(http.MethodPost, "/verify-payment", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Payment verification failed", resp.Error)

	order, err := env.orders.FindByID(t.Context(), nil, "ord1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Razorpay
		body      string
		wantError string
	}{
		{name: "malformed json", body: `{"items":`, wantError: "Invalid request"},
		{name: "empty cart", body: `{"items":[],"totalAmount":10}`, wantError: "Invalid request"},
		{name: "missing credentials", cfg: &config.Razorpay{}, body: cartBody, wantError: "Payment gateway not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.cfg, config.RateLimit{})

			rec := env.do(http.MethodPost, "/create-order", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
			assert.NotEmpty(t, resp.Details)
			assert.NotContains(t, rec.Body.String(), testKeySecret)
		})
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{RPS: 0.001, Burst: 1})

	rec := env.do(http.MethodPost, "/create-order", `{"items":[],"totalAmount":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/create-order", `{"items":[],"totalAmount":1}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// catalog routes are not limited
	rec = env.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrency(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})

	t.Run("list", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/currencies", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.CurrencyListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INR", resp.Base)
		assert.Len(t, resp.Currencies, len(currency.Supported()))
	})

	t.Run("defaults to base", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/convert?amount=1000", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"amount":"1000","converted":"1000","currency":"INR","symbol":"₹","formatted":"₹1000.00"}`, rec.Body.String())
	})

	t.Run("country header", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/convert?amount=1000", "", func(r *http.Request) {
			r.Header.Set("X-Country-Code", "jp")
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.ConvertResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "JPY", resp.Currency)
		assert.Equal(t, "¥1780", resp.Formatted)
	})

	t.Run("cookie round trip", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/currency", `{"code":"usd"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "currency", cookies[0].Name)
		assert.Equal(t, "USD", cookies[0].Value)

		rec = env.do(http.MethodGet, "/api/convert?amount=1000", "", func(r *http.Request) {
			r.AddCookie(cookies[0])
			r.Header.Set("X-Country-Code", "JP")
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.ConvertResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "USD", resp.Currency)
		assert.Equal(t, "$12.00", resp.Formatted)
	})

	t.Run("unsupported", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/currency", `{"code":"XYZ"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodGet, "/api/convert?amount=1000&currency=XYZ", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodGet, "/api/convert?amount=lots", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestArtworks(t *testing.T) {
	env := newTestEnv(t, nil, config.RateLimit{})

	rec := env.do(http.MethodPost, "/api/artworks", `{"title":"Sunset Mountain","artist":"R. Iyer","price":"12000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Artwork
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.Slug)
	assert.Equal(t, "sunset-mountain", *created.Slug)

	rec = env.do(http.MethodGet, "/api/artworks/sunset-mountain", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/artworks/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/api/artworks", `{"title":"***","price":"10"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
