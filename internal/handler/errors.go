package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"gallery-checkout/internal/checkout"
	"gallery-checkout/internal/currency"
	"gallery-checkout/internal/dto"
	"gallery-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

// paymentError writes the {error, details} body used by the payment routes.
// Every failure is a 400; details never carry provider or credential data.
func paymentError(c echo.Context, log *slog.Logger, err error) error {
	ctx := c.Request().Context()
	resp := dto.ErrorResponse{}

	switch {
	case errors.Is(err, service.ErrConfiguration):
		log.ErrorContext(ctx, "server misconfiguration", "path", c.Path(), "err", err)
		resp.Error = "Payment gateway not configured"
		resp.Details = "The server is missing payment provider configuration"
	case errors.Is(err, service.ErrInvalidSignature):
		log.WarnContext(ctx, "payment signature rejected", "path", c.Path(), "err", err)
		resp.Error = "Payment verification failed"
		resp.Details = "Invalid payment signature"
	case errors.Is(err, service.ErrOrderNotFound):
		log.ErrorContext(ctx, "verified payment has no matching order", "path", c.Path(), "err", err)
		resp.Error = "Order not found"
		resp.Details = "No order matches this payment"
	case errors.Is(err, service.ErrProvider):
		log.ErrorContext(ctx, "payment provider error", "path", c.Path(), "err", err)
		resp.Error = "Payment provider error"
		resp.Details = "The payment provider could not complete the request"
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, checkout.ErrInvalidCart):
		log.InfoContext(ctx, "invalid payment request", "path", c.Path(), "err", err)
		resp.Error = "Invalid request"
		resp.Details = err.Error()
	default:
		log.ErrorContext(ctx, "payment request failed", "path", c.Path(), "err", err)
		resp.Error = "Request failed"
		resp.Details = "Unexpected server error"
	}

	return c.JSON(http.StatusBadRequest, resp)
}

// catalogError maps errors on the /api routes to 400, 404 or 500.
func catalogError(c echo.Context, log *slog.Logger, err error) error {
	ctx := c.Request().Context()

	switch {
	case errors.Is(err, service.ErrArtworkNotFound):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found", Details: err.Error()})
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, currency.ErrUnsupportedCurrency):
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request", Details: err.Error()})
	default:
		log.ErrorContext(ctx, "request failed", "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}
