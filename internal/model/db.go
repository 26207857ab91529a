package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

type Order struct {
	ID               string      `gorm:"primaryKey;size:64;not null"` // internal order id, echoed in provider notes
	Status           OrderStatus `gorm:"size:16;index;not null"`      // pending, completed, failed
	ProviderOrderID  string      `gorm:"size:64;index"`
	PaymentReference string      `gorm:"size:64;index"` // provider payment id once verified
	Receipt          string      `gorm:"size:40;not null"`
	Amount           int64       `gorm:"not null"` // minor units
	Currency         string      `gorm:"size:8;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderItem struct {
	ID uint `gorm:"primaryKey"`
	// FK → orders.id
	OrderID   string          `gorm:"size:64;index;not null"`
	ArtworkID string          `gorm:"size:64;index;not null"`
	Title     string          `gorm:"size:255"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	Quantity  int32           `gorm:"not null"`

	CreatedAt time.Time
}

// PaymentEvent records provider webhook deliveries that were applied.
type PaymentEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	OrderID     string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

type Artwork struct {
	ID        string          `gorm:"primaryKey;size:64;not null" json:"id"`
	Title     string          `gorm:"size:255;not null" json:"title"`
	Slug      *string         `gorm:"size:255;uniqueIndex" json:"slug"` // nil until assigned
	Artist    string          `gorm:"size:255" json:"artist"`
	Price     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
