package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gallery-checkout/internal/config"
	"gallery-checkout/internal/model"
)

var (
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrNotConfigured     = errors.New("payment gateway credentials not configured")
)

// PaymentGateway is the subset of the provider API the checkout flow uses.
type PaymentGateway interface {
	Configured() bool
	WebhookConfigured() bool
	KeyID() string
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.RazorpayOrder, error)
	FetchOrder(ctx context.Context, orderID string) (*model.RazorpayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*model.RazorpayPayment, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	VerifyWebhookSignature(body []byte, signature string) error
}

type CreateOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// ProviderError is a non-2xx answer from the provider API.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("razorpay error %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

type razorpayClientImpl struct {
	httpClient    *http.Client
	baseApiURL    string
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpayClient(cfg *config.Razorpay) PaymentGateway {
	return &razorpayClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    cfg.BaseApiURL,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *razorpayClientImpl) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

func (c *razorpayClientImpl) WebhookConfigured() bool {
	return c.webhookSecret != ""
}

func (c *razorpayClientImpl) KeyID() string {
	return c.keyID
}

func (c *razorpayClientImpl) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*model.RazorpayOrder, error) {
	var order model.RazorpayOrder
	if err := c.do(ctx, http.MethodPost, "/v1/orders", req, &order); err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return &order, nil
}

func (c *razorpayClientImpl) FetchOrder(ctx context.Context, orderID string) (*model.RazorpayOrder, error) {
	var order model.RazorpayOrder
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, fmt.Errorf("razorpay fetch order: %w", err)
	}
	return &order, nil
}

func (c *razorpayClientImpl) FetchPayment(ctx context.Context, paymentID string) (*model.RazorpayPayment, error) {
	var payment model.RazorpayPayment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		return nil, fmt.Errorf("razorpay fetch payment: %w", err)
	}
	return &payment, nil
}

// VerifyPaymentSignature checks the checkout handler signature,
// hex(HMAC-SHA256(key secret, order_id + "|" + payment_id)).
func (c *razorpayClientImpl) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	return verifyHMAC([]byte(c.keySecret), []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks X-Razorpay-Signature,
// hex(HMAC-SHA256(webhook secret, raw body)).
func (c *razorpayClientImpl) VerifyWebhookSignature(body []byte, signature string) error {
	if !c.WebhookConfigured() {
		return ErrNotConfigured
	}
	return verifyHMAC([]byte(c.webhookSecret), body, signature)
}

func (c *razorpayClientImpl) do(ctx context.Context, method, path string, in, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pe := &ProviderError{StatusCode: resp.StatusCode}
		var apiErr model.RazorpayError
		if b, _ := io.ReadAll(resp.Body); json.Unmarshal(b, &apiErr) == nil {
			pe.Code = apiErr.Error.Code
			pe.Description = apiErr.Error.Description
		}
		return pe
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode razorpay response: %w", err)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 the provider attaches to callbacks.
func Sign(secret, message []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(secret, message []byte, signature string) error {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	if !hmac.Equal(mac.Sum(nil), got) {
		return ErrSignatureMismatch
	}
	return nil
}
