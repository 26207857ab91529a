package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"gallery-checkout/internal/checkout"
	"gallery-checkout/internal/client"
	"gallery-checkout/internal/currency"
	"gallery-checkout/internal/dto"
	"gallery-checkout/internal/model"
	"gallery-checkout/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	headerWebhookSignature = "X-Razorpay-Signature"
	headerWebhookEventID   = "X-Razorpay-Event-Id"

	// receipt is "order_" + id under the provider's 40-character limit
	maxOrderIDLen = 34
)

type PaymentService interface {
	CreateOrder(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error)
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) error
}

type paymentServiceImpl struct {
	db               *gorm.DB
	gateway          client.PaymentGateway
	currency         currency.Currency
	builder          *checkout.Builder
	orderRepo        repository.OrderRepository
	paymentEventRepo repository.PaymentEventRepository
	log              *slog.Logger
}

func NewPaymentService(
	db *gorm.DB,
	gateway client.PaymentGateway,
	cur currency.Currency,
	orderRepo repository.OrderRepository,
	paymentEventRepo repository.PaymentEventRepository,
	log *slog.Logger,
) PaymentService {
	return &paymentServiceImpl{
		db:               db,
		gateway:          gateway,
		currency:         cur,
		builder:          checkout.NewBuilder(cur),
		orderRepo:        orderRepo,
		paymentEventRepo: paymentEventRepo,
		log:              log,
	}
}

func (s *paymentServiceImpl) CreateOrder(ctx context.Context, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	if !req.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: totalAmount must be positive", ErrInvalidRequest)
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if err := validateOrderID(orderID); err != nil {
		return nil, err
	}

	intent, err := s.builder.Build(req.Items, orderID)
	if err != nil {
		if errors.Is(err, checkout.ErrInvalidCart) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("build order intent: %w", err)
	}

	if !s.gateway.Configured() {
		return nil, fmt.Errorf("%w: payment gateway credentials missing", ErrConfiguration)
	}

	amount := currency.ToMinorUnits(req.TotalAmount, s.currency)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: totalAmount rounds to zero", ErrInvalidRequest)
	}
	if amount != intent.Amount {
		s.log.WarnContext(ctx, "totalAmount differs from cart total",
			"order_id", orderID,
			"total_amount", amount,
			"cart_amount", intent.Amount,
		)
	}

	existing, err := s.orderRepo.FindByID(ctx, nil, orderID)
	switch {
	case err == nil:
		if existing.Status != model.OrderStatusPending {
			return nil, fmt.Errorf("%w: order %s is already %s", ErrInvalidRequest, orderID, existing.Status)
		}
		if existing.Amount != amount || existing.Currency != string(s.currency.Code) {
			return nil, fmt.Errorf("%w: order %s exists for %s %s, request is for %s %s", ErrInvalidRequest, orderID,
				s.formatMinor(existing.Amount), existing.Currency, s.formatMinor(amount), s.currency.Code)
		}
		if err := s.matchStoredItems(ctx, orderID, intent.Items); err != nil {
			return nil, err
		}
		if existing.ProviderOrderID != "" {
			s.log.InfoContext(ctx, "returning existing provider order", "order_id", orderID, "provider_order_id", existing.ProviderOrderID)
			return s.orderResponse(existing), nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.persistOrder(ctx, intent, amount); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find order: %w", err)
	}

	rzOrder, err := s.gateway.CreateOrder(ctx, &client.CreateOrderRequest{
		Amount:   amount,
		Currency: string(s.currency.Code),
		Receipt:  intent.Receipt,
		Notes:    intent.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if err := s.orderRepo.SetProviderOrderID(ctx, nil, orderID, rzOrder.ID); err != nil {
		return nil, fmt.Errorf("store provider order id: %w", err)
	}

	s.log.InfoContext(ctx, "provider order created",
		"order_id", orderID,
		"provider_order_id", rzOrder.ID,
		"amount", rzOrder.Amount,
		"currency", rzOrder.Currency,
	)

	return &dto.CreateOrderResponse{
		ID:       rzOrder.ID,
		Amount:   rzOrder.Amount,
		Currency: rzOrder.Currency,
		Receipt:  rzOrder.Receipt,
		KeyID:    s.gateway.KeyID(),
		OrderID:  orderID,
	}, nil
}

func validateOrderID(id string) error {
	if len(id) > maxOrderIDLen {
		return fmt.Errorf("%w: orderId longer than %d characters", ErrInvalidRequest, maxOrderIDLen)
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return fmt.Errorf("%w: orderId may only contain letters, digits, '-' and '_'", ErrInvalidRequest)
		}
	}
	return nil
}

func (s *paymentServiceImpl) formatMinor(minor int64) string {
	return currency.FromMinorUnits(minor, s.currency).StringFixed(s.currency.MinorUnits)
}

// matchStoredItems rejects a repeated orderId whose cart differs from the one
// persisted with the order.
func (s *paymentServiceImpl) matchStoredItems(ctx context.Context, orderID string, items []checkout.CartItem) error {
	stored, err := s.orderRepo.GetOrderItems(ctx, nil, orderID)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}

	type line struct {
		artworkID string
		quantity  int64
		price     string
	}
	remaining := make(map[line]int, len(stored))
	for _, item := range stored {
		remaining[line{item.ArtworkID, int64(item.Quantity), item.UnitPrice.StringFixed(4)}]++
	}
	for _, item := range items {
		key := line{item.Artwork.ID, int64(item.Quantity), item.Artwork.Price.StringFixed(4)}
		if remaining[key] == 0 {
			return fmt.Errorf("%w: order %s exists with a different cart", ErrInvalidRequest, orderID)
		}
		remaining[key]--
	}
	if len(stored) != len(items) {
		return fmt.Errorf("%w: order %s exists with a different cart", ErrInvalidRequest, orderID)
	}
	return nil
}

func (s *paymentServiceImpl) persistOrder(ctx context.Context, intent *checkout.Intent, amount int64) error {
	orderItems := make([]*model.OrderItem, len(intent.Items))
	for i, item := range intent.Items {
		orderItems[i] = &model.OrderItem{
			OrderID:   intent.OrderRef,
			ArtworkID: item.Artwork.ID,
			Title:     item.Artwork.Title,
			UnitPrice: item.Artwork.Price,
			Quantity:  int32(item.Quantity),
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := s.orderRepo.Create(ctx, tx, &model.Order{
			ID:       intent.OrderRef,
			Status:   model.OrderStatusPending,
			Receipt:  intent.Receipt,
			Amount:   amount,
			Currency: string(s.currency.Code),
		})
		if err != nil {
			return fmt.Errorf("store order in db: %w", err)
		}

		err = s.orderRepo.CreateOrderItems(ctx, tx, orderItems)
		if err != nil {
			return fmt.Errorf("store order items in db: %w", err)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: order %s already exists", ErrInvalidRequest, intent.OrderRef)
	}
	return err
}

func (s *paymentServiceImpl) orderResponse(order *model.Order) *dto.CreateOrderResponse {
	return &dto.CreateOrderResponse{
		ID:       order.ProviderOrderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		KeyID:    s.gateway.KeyID(),
		OrderID:  order.ID,
	}
}

func (s *paymentServiceImpl) VerifyPayment(ctx context.Context, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error) {
	if req.ProviderOrderID == "" || req.ProviderPaymentID == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: razorpay_order_id, razorpay_payment_id and razorpay_signature are required", ErrInvalidRequest)
	}

	if !s.gateway.Configured() {
		return nil, fmt.Errorf("%w: payment gateway secret missing", ErrConfiguration)
	}

	err := s.gateway.VerifyPaymentSignature(req.ProviderOrderID, req.ProviderPaymentID, req.Signature)
	if err != nil {
		if errors.Is(err, client.ErrSignatureMismatch) {
			return nil, fmt.Errorf("%w: provider order %s", ErrInvalidSignature, req.ProviderOrderID)
		}
		return nil, fmt.Errorf("verify payment signature: %w", err)
	}

	orderID, err := s.resolveOrderID(ctx, req.ProviderOrderID)
	if err != nil {
		return nil, err
	}

	payment, err := s.gateway.FetchPayment(ctx, req.ProviderPaymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if payment.OrderID != req.ProviderOrderID {
		return nil, fmt.Errorf("%w: payment %s belongs to provider order %q", ErrInvalidSignature, payment.ID, payment.OrderID)
	}

	paymentFailed := payment.Status == model.PaymentStatusFailed

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.orderRepo.FindByID(ctx, tx, orderID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
			}
			return fmt.Errorf("find order: %w", err)
		}

		if paymentFailed {
			_, err := s.orderRepo.MarkFailed(ctx, tx, orderID, payment.ID)
			if err != nil {
				return fmt.Errorf("mark order failed: %w", err)
			}
			return nil
		}

		changed, err := s.orderRepo.MarkCompleted(ctx, tx, orderID, req.ProviderOrderID, payment.ID)
		if err != nil {
			return fmt.Errorf("mark order completed: %w", err)
		}
		if changed {
			return nil
		}

		// nothing pending: fine only if this exact payment already completed it
		order, err := s.orderRepo.FindByID(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("re-read order: %w", err)
		}
		if order.Status == model.OrderStatusCompleted && order.PaymentReference == payment.ID {
			return nil
		}
		return fmt.Errorf("%w: order %s is already %s", ErrInvalidRequest, orderID, order.Status)
	})
	if err != nil {
		return nil, err
	}

	if paymentFailed {
		s.log.WarnContext(ctx, "payment failed at provider",
			"order_id", orderID,
			"payment_id", payment.ID,
			"error_code", payment.ErrorCode,
		)
		return nil, fmt.Errorf("%w: payment %s failed: %s", ErrProvider, payment.ID, payment.ErrorDescription)
	}

	s.log.InfoContext(ctx, "payment verified", "order_id", orderID, "payment_id", payment.ID)

	return &dto.VerifyPaymentResponse{
		Success:   true,
		OrderID:   orderID,
		PaymentID: payment.ID,
	}, nil
}

// resolveOrderID maps a provider order to the internal order through the
// orderId note written at creation, falling back to the stored provider id.
func (s *paymentServiceImpl) resolveOrderID(ctx context.Context, providerOrderID string) (string, error) {
	rzOrder, err := s.gateway.FetchOrder(ctx, providerOrderID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if id := rzOrder.Notes["orderId"]; id != "" {
		return id, nil
	}

	order, err := s.orderRepo.FindByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: provider order %s", ErrOrderNotFound, providerOrderID)
		}
		return "", fmt.Errorf("find order by provider id: %w", err)
	}
	return order.ID, nil
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, headers http.Header, body []byte) error {
	if !s.gateway.WebhookConfigured() {
		return fmt.Errorf("%w: webhook secret missing", ErrConfiguration)
	}

	err := s.gateway.VerifyWebhookSignature(body, headers.Get(headerWebhookSignature))
	if err != nil {
		if errors.Is(err, client.ErrSignatureMismatch) {
			return fmt.Errorf("%w: webhook", ErrInvalidSignature)
		}
		return fmt.Errorf("verify webhook signature: %w", err)
	}

	var event model.RazorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: decode webhook payload: %w", ErrInvalidRequest, err)
	}

	var target model.OrderStatus
	switch event.Event {
	case model.EventPaymentCaptured, model.EventOrderPaid:
		target = model.OrderStatusCompleted
	case model.EventPaymentFailed:
		target = model.OrderStatusFailed
	default:
		s.log.DebugContext(ctx, "ignoring webhook event", "event", event.Event)
		return nil
	}

	if event.Payload.Payment == nil {
		return fmt.Errorf("%w: %s without payment entity", ErrInvalidRequest, event.Event)
	}
	payment := event.Payload.Payment.Entity

	eventID := headers.Get(headerWebhookEventID)
	if eventID == "" {
		eventID = event.Event + ":" + payment.ID
	}

	providerOrderID := payment.OrderID
	orderID := payment.Notes["orderId"]
	if order := event.Payload.Order; order != nil {
		if providerOrderID == "" {
			providerOrderID = order.Entity.ID
		}
		if orderID == "" {
			orderID = order.Entity.Notes["orderId"]
		}
	}
	if orderID == "" && providerOrderID != "" {
		order, err := s.orderRepo.FindByProviderOrderID(ctx, providerOrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find order by provider id: %w", err)
		}
		if order != nil {
			orderID = order.ID
		}
	}
	if orderID == "" {
		// not one of ours; ack so the provider stops retrying
		s.log.WarnContext(ctx, "webhook for unknown order",
			"event", event.Event,
			"event_id", eventID,
			"provider_order_id", providerOrderID,
		)
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		processed, err := s.paymentEventRepo.Exists(ctx, tx, eventID)
		if err != nil {
			return fmt.Errorf("check webhook event: %w", err)
		}
		if processed {
			s.log.InfoContext(ctx, "webhook event already processed", "event_id", eventID)
			return nil
		}

		if _, err := s.orderRepo.FindByID(ctx, tx, orderID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
			}
			return fmt.Errorf("find order: %w", err)
		}

		var changed bool
		if target == model.OrderStatusCompleted {
			changed, err = s.orderRepo.MarkCompleted(ctx, tx, orderID, providerOrderID, payment.ID)
		} else {
			changed, err = s.orderRepo.MarkFailed(ctx, tx, orderID, payment.ID)
		}
		if err != nil {
			return fmt.Errorf("mark order %s: %w", target, err)
		}

		s.log.InfoContext(ctx, "webhook applied",
			"event", event.Event,
			"event_id", eventID,
			"order_id", orderID,
			"transitioned", changed,
		)

		if err := s.paymentEventRepo.MarkProcessed(ctx, tx, eventID, event.Event, orderID); err != nil {
			return fmt.Errorf("mark webhook processed: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrOrderNotFound) {
		s.log.ErrorContext(ctx, "webhook names an order that does not exist",
			"event", event.Event,
			"event_id", eventID,
			"order_id", orderID,
			"provider_order_id", providerOrderID,
			"err", err,
		)
	}
	return err
}
