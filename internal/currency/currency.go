// Package currency holds the storefront's display currencies and converts
// base-currency prices into them.
package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnsupportedCurrency = errors.New("unsupported currency")

type Code string

const (
	INR Code = "INR"
	USD Code = "USD"
	GBP Code = "GBP"
	EUR Code = "EUR"
	JPY Code = "JPY"
	AUD Code = "AUD"
)

type Currency struct {
	Code       Code   `json:"code"`
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	MinorUnits int32  `json:"minor_units"`
}

var supported = []Currency{
	{Code: INR, Symbol: "₹", Name: "Indian Rupee", MinorUnits: 2},
	{Code: USD, Symbol: "$", Name: "US Dollar", MinorUnits: 2},
	{Code: GBP, Symbol: "£", Name: "British Pound", MinorUnits: 2},
	{Code: EUR, Symbol: "€", Name: "Euro", MinorUnits: 2},
	{Code: JPY, Symbol: "¥", Name: "Japanese Yen", MinorUnits: 0},
	{Code: AUD, Symbol: "A$", Name: "Australian Dollar", MinorUnits: 2},
}

// Supported returns the display currencies in presentation order.
func Supported() []Currency {
	out := make([]Currency, len(supported))
	copy(out, supported)
	return out
}

// Lookup finds a supported currency by ISO 4217 code, case-insensitively.
func Lookup(code string) (Currency, error) {
	want := Code(strings.ToUpper(strings.TrimSpace(code)))
	for _, c := range supported {
		if c.Code == want {
			return c, nil
		}
	}
	return Currency{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
}

var countryCurrency = map[string]Code{
	"US": USD,
	"GB": GBP,
	"UK": GBP,
	"DE": EUR,
	"FR": EUR,
	"IT": EUR,
	"ES": EUR,
	"JP": JPY,
	"AU": AUD,
	"IN": INR,
}

// ForCountry maps an ISO 3166 country code to its display currency.
func ForCountry(country string) (Currency, bool) {
	code, ok := countryCurrency[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		return Currency{}, false
	}
	c, err := Lookup(string(code))
	return c, err == nil
}

// ToMinorUnits rounds amount half away from zero into the currency's
// smallest unit, e.g. 499.005 INR -> 49901 paise.
func ToMinorUnits(amount decimal.Decimal, c Currency) int64 {
	return amount.Shift(c.MinorUnits).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64, c Currency) decimal.Decimal {
	return decimal.New(minor, -c.MinorUnits)
}
