package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"gallery-checkout/internal/client"
	"gallery-checkout/internal/config"
	"gallery-checkout/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testKeySecret     = "key_secret"
	testWebhookSecret = "webhook_secret"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.OpenDatabase(config.Database{
		Driver: "sqlite",
		URL:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, discardLogger())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGateway stands in for the provider API. Signatures are real HMACs.
type fakeGateway struct {
	configured        bool
	webhookConfigured bool

	orders   map[string]*model.RazorpayOrder
	payments map[string]*model.RazorpayPayment

	createCalls int
	createErr   error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		configured:        true,
		webhookConfigured: true,
		orders:            map[string]*model.RazorpayOrder{},
		payments:          map[string]*model.RazorpayPayment{},
	}
}

func (g *fakeGateway) Configured() bool        { return g.configured }
func (g *fakeGateway) WebhookConfigured() bool { return g.webhookConfigured }
func (g *fakeGateway) KeyID() string           { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(_ context.Context, req *client.CreateOrderRequest) (*model.RazorpayOrder, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}

	order := &model.RazorpayOrder{
		ID:       fmt.Sprintf("order_P%d", g.createCalls),
		Entity:   "order",
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    model.Notes(req.Notes),
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, id string) (*model.RazorpayOrder, error) {
	order, ok := g.orders[id]
	if !ok {
		return nil, &client.ProviderError{StatusCode: 400, Code: "BAD_REQUEST_ERROR"}
	}
	return order, nil
}

func (g *fakeGateway) FetchPayment(_ context.Context, id string) (*model.RazorpayPayment, error) {
	payment, ok := g.payments[id]
	if !ok {
		return nil, &client.ProviderError{StatusCode: 400, Code: "BAD_REQUEST_ERROR"}
	}
	return payment, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if client.Sign([]byte(testKeySecret), []byte(orderID+"|"+paymentID)) != signature {
		return client.ErrSignatureMismatch
	}
	return nil
}

func (g *fakeGateway) VerifyWebhookSignature(body []byte, signature string) error {
	if client.Sign([]byte(testWebhookSecret), body) != signature {
		return client.ErrSignatureMismatch
	}
	return nil
}

// pay records a provider payment against a provider order.
func (g *fakeGateway) pay(providerOrderID, paymentID, status string) {
	g.payments[paymentID] = &model.RazorpayPayment{
		ID:      paymentID,
		Entity:  "payment",
		Status:  status,
		OrderID: providerOrderID,
	}
}

func paymentSignature(providerOrderID, paymentID string) string {
	return client.Sign([]byte(testKeySecret), []byte(providerOrderID+"|"+paymentID))
}
