// Package checkout turns a cart into the order intent submitted to the
// payment provider.
package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"gallery-checkout/internal/currency"

	"github.com/shopspring/decimal"
)

var ErrInvalidCart = errors.New("invalid cart")

const (
	// provider-side limits
	maxReceiptLen   = 40
	maxNoteValueLen = 256

	// order items persist quantity as int32
	MaxQuantity = math.MaxInt32
)

type Artwork struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

type CartItem struct {
	Artwork  Artwork `json:"artwork"`
	Quantity int     `json:"quantity"`
}

// LineTotal is price × quantity at full precision.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Artwork.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Intent is one checkout attempt. It is not modified after Build returns.
type Intent struct {
	Items    []CartItem
	Total    decimal.Decimal
	Amount   int64 // Total in minor units
	Currency currency.Currency
	OrderRef string
	Receipt  string
	Notes    map[string]string
}

type Builder struct {
	currency currency.Currency
	now      func() time.Time
}

func NewBuilder(cur currency.Currency) *Builder {
	return &Builder{
		currency: cur,
		now:      time.Now,
	}
}

// Build validates items and computes the intent. orderRef is optional.
func (b *Builder) Build(items []CartItem, orderRef string) (*Intent, error) {
	if err := Validate(items); err != nil {
		return nil, err
	}

	total := Total(items, b.currency)
	cp := make([]CartItem, len(items))
	copy(cp, items)

	return &Intent{
		Items:    cp,
		Total:    total,
		Amount:   currency.ToMinorUnits(total, b.currency),
		Currency: b.currency,
		OrderRef: orderRef,
		Receipt:  Receipt(orderRef, b.now()),
		Notes:    Notes(orderRef, items),
	}, nil
}

func Validate(items []CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}
	for i, item := range items {
		if item.Artwork.ID == "" {
			return fmt.Errorf("%w: item %d: missing artwork.id", ErrInvalidCart, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be a positive integer, got %d", ErrInvalidCart, i, item.Quantity)
		}
		if item.Quantity > MaxQuantity {
			return fmt.Errorf("%w: item %d: quantity %d exceeds %d", ErrInvalidCart, i, item.Quantity, MaxQuantity)
		}
		if !item.Artwork.Price.IsPositive() {
			return fmt.Errorf("%w: item %d: artwork.price must be positive, got %s", ErrInvalidCart, i, item.Artwork.Price)
		}
	}
	return nil
}

// Total sums full-precision line totals and rounds once, at the end, to the
// currency's minor unit.
func Total(items []CartItem, cur currency.Currency) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum.Round(cur.MinorUnits)
}

// Receipt derives the provider receipt from the order reference, or from
// the clock when there is none.
func Receipt(orderRef string, now time.Time) string {
	r := "order_" + strconv.FormatInt(now.UnixMilli(), 10)
	if orderRef != "" {
		r = "order_" + orderRef
	}
	if len(r) > maxReceiptLen {
		r = r[:maxReceiptLen]
	}
	return r
}

type noteItem struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Notes summarises the cart for support lookups on the provider dashboard.
// Items that do not fit the provider's note size are dropped and flagged.
func Notes(orderRef string, items []CartItem) map[string]string {
	notes := map[string]string{
		"orderId":   orderRef,
		"itemCount": strconv.Itoa(len(items)),
	}

	summary := make([]noteItem, 0, len(items))
	encoded := "[]"
	for _, item := range items {
		next := append(summary, noteItem{
			ID:       item.Artwork.ID,
			Title:    item.Artwork.Title,
			Quantity: item.Quantity,
			Price:    item.Artwork.Price,
		})
		b, err := json.Marshal(next)
		if err != nil || len(b) > maxNoteValueLen {
			notes["itemsTruncated"] = "true"
			break
		}
		summary = next
		encoded = string(b)
	}
	notes["items"] = encoded
	return notes
}
