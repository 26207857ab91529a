package dto

import (
	"gallery-checkout/internal/checkout"
	"gallery-checkout/internal/currency"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	Items       []checkout.CartItem `json:"items"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	OrderID     string              `json:"orderId,omitempty"`
}

type CreateOrderResponse struct {
	ID       string `json:"id"`     // provider order id
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"key_id"`
	OrderID  string `json:"order_id"` // internal order id
}

// VerifyPaymentRequest carries the provider checkout callback. Field names
// follow Razorpay's handler response.
type VerifyPaymentRequest struct {
	ProviderOrderID   string `json:"razorpay_order_id"`
	ProviderPaymentID string `json:"razorpay_payment_id"`
	Signature         string `json:"razorpay_signature"`
}

type VerifyPaymentResponse struct {
	Success   bool   `json:"success"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type CurrencyListResponse struct {
	Base       string              `json:"base"`
	Currencies []currency.Currency `json:"currencies"`
}

type SetCurrencyRequest struct {
	Code string `json:"code"`
}

type ConvertResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	Converted decimal.Decimal `json:"converted"`
	Currency  string          `json:"currency"`
	Symbol    string          `json:"symbol"`
	Formatted string          `json:"formatted"`
}

type CreateArtworkRequest struct {
	Title  string          `json:"title"`
	Artist string          `json:"artist"`
	Price  decimal.Decimal `json:"price"`
}
