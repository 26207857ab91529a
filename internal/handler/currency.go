package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gallery-checkout/internal/currency"
	"gallery-checkout/internal/dto"
	"gallery-checkout/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	currencyCookie    = "currency"
	countryHeader     = "X-Country-Code"
	currencyCookieAge = 365 * 24 * time.Hour
)

type Converter interface {
	Base() currency.Currency
	Convert(ctx context.Context, amount decimal.Decimal, code string) (decimal.Decimal, currency.Currency, error)
}

type CurrencyHandler struct {
	converter Converter
	log       *slog.Logger
}

func NewCurrencyHandler(converter Converter, log *slog.Logger) *CurrencyHandler {
	return &CurrencyHandler{
		converter: converter,
		log:       log,
	}
}

func (h *CurrencyHandler) ListCurrencies(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.CurrencyListResponse{
		Base:       string(h.converter.Base().Code),
		Currencies: currency.Supported(),
	})
}

func (h *CurrencyHandler) Convert(c echo.Context) error {
	ctx := c.Request().Context()

	amount, err := decimal.NewFromString(c.QueryParam("amount"))
	if err != nil {
		return catalogError(c, h.log, fmt.Errorf("%w: amount must be a decimal number", service.ErrInvalidRequest))
	}

	converted, target, err := h.converter.Convert(ctx, amount, h.selectedCurrency(c))
	if err != nil {
		return catalogError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, dto.ConvertResponse{
		Amount:    amount,
		Converted: converted,
		Currency:  string(target.Code),
		Symbol:    target.Symbol,
		Formatted: target.Symbol + converted.StringFixed(target.MinorUnits),
	})
}

// SetCurrency remembers the shopper's display currency in a cookie.
func (h *CurrencyHandler) SetCurrency(c echo.Context) error {
	var req dto.SetCurrencyRequest
	if err := c.Bind(&req); err != nil {
		return catalogError(c, h.log, fmt.Errorf("%w: malformed request body", service.ErrInvalidRequest))
	}

	selected, err := currency.Lookup(req.Code)
	if err != nil {
		return catalogError(c, h.log, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     currencyCookie,
		Value:    string(selected.Code),
		Path:     "/",
		Expires:  time.Now().Add(currencyCookieAge),
		MaxAge:   int(currencyCookieAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, selected)
}

// selectedCurrency resolves the display currency: explicit query, then the
// cookie, then the caller's country, then the base currency.
func (h *CurrencyHandler) selectedCurrency(c echo.Context) string {
	if code := c.QueryParam("currency"); code != "" {
		return code
	}
	if cookie, err := c.Cookie(currencyCookie); err == nil && cookie.Value != "" {
		if _, err := currency.Lookup(cookie.Value); err == nil {
			return cookie.Value
		}
	}
	if cur, ok := currency.ForCountry(c.Request().Header.Get(countryHeader)); ok {
		return string(cur.Code)
	}
	return string(h.converter.Base().Code)
}
