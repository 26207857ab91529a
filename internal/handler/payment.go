package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"gallery-checkout/internal/dto"
	"gallery-checkout/internal/service"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	paymentService service.PaymentService
	log            *slog.Logger
}

func NewPaymentHandler(paymentService service.PaymentService, log *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		log:            log,
	}
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return paymentError(c, h.log, fmt.Errorf("%w: malformed request body", service.ErrInvalidRequest))
	}

	result, err := h.paymentService.CreateOrder(ctx, &req)
	if err != nil {
		return paymentError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return paymentError(c, h.log, fmt.Errorf("%w: malformed request body", service.ErrInvalidRequest))
	}

	result, err := h.paymentService.VerifyPayment(ctx, &req)
	if err != nil {
		return paymentError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) RazorpayWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	// signature covers the raw bytes, so read before any decoding
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.paymentService.HandleWebhook(ctx, c.Request().Header, body)
	if err != nil {
		return paymentError(c, h.log, fmt.Errorf("handle webhook: %w", err))
	}

	return c.NoContent(http.StatusOK)
}
