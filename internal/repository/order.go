package repository

import (
	"context"
	"time"

	"gallery-checkout/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Order, error)
	FindByProviderOrderID(ctx context.Context, providerOrderID string) (*model.Order, error)
	SetProviderOrderID(ctx context.Context, tx *gorm.DB, id, providerOrderID string) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, id, providerOrderID, paymentRef string) (bool, error)
	MarkFailed(ctx context.Context, tx *gorm.DB, id, paymentRef string) (bool, error)
	GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	return r.conn(tx).WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) CreateOrderItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, id string) (*model.Order, error) {
	var order model.Order
	err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByProviderOrderID(ctx context.Context, providerOrderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("provider_order_id = ?", providerOrderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) SetProviderOrderID(ctx context.Context, tx *gorm.DB, id, providerOrderID string) error {
	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"provider_order_id": providerOrderID,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkCompleted moves a pending or failed order to completed. A failed order
// can still be paid by a later attempt on the same provider order. It reports
// false when no row matched, which callers use to detect replays.
func (r *orderRepoImpl) MarkCompleted(ctx context.Context, tx *gorm.DB, id, providerOrderID, paymentRef string) (bool, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where(`
			id = ?
			AND status IN ?
		`,
			id,
			[]string{string(model.OrderStatusPending), string(model.OrderStatusFailed)},
		).
		Updates(map[string]interface{}{
			"status":            model.OrderStatusCompleted,
			"provider_order_id": providerOrderID,
			"payment_reference": paymentRef,
			"updated_at":        time.Now(),
		})

	return result.RowsAffected > 0, result.Error
}

func (r *orderRepoImpl) MarkFailed(ctx context.Context, tx *gorm.DB, id, paymentRef string) (bool, error) {
	result := r.conn(tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":            model.OrderStatusFailed,
			"payment_reference": paymentRef,
			"updated_at":        time.Now(),
		})

	return result.RowsAffected > 0, result.Error
}

func (r *orderRepoImpl) GetOrderItems(ctx context.Context, tx *gorm.DB, orderID string) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := r.conn(tx).WithContext(ctx).Where("order_id = ?", orderID).
		Order("id").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}
