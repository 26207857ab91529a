package repository

import (
	"context"
	"time"

	"gallery-checkout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentEventRepository dedupes provider webhook deliveries.
type PaymentEventRepository interface {
	Exists(ctx context.Context, tx *gorm.DB, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, eventID, eventType, orderID string) error
}

type paymentEventRepoImpl struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &paymentEventRepoImpl{db: db}
}

func (r *paymentEventRepoImpl) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *paymentEventRepoImpl) Exists(ctx context.Context, tx *gorm.DB, eventID string) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).Model(&model.PaymentEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error

	return count > 0, err
}

func (r *paymentEventRepoImpl) MarkProcessed(ctx context.Context, tx *gorm.DB, eventID, eventType, orderID string) error {
	return r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.PaymentEvent{
			EventID:     eventID,
			EventType:   eventType,
			OrderID:     orderID,
			ProcessedAt: time.Now(),
		}).Error
}
