package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusCanceled = "canceled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
	// PaymentStatusSettlementFailed marks a payment the provider confirmed
	// but whose order could not be settled (stock ran out in between).
	PaymentStatusSettlementFailed = "settlement_failed"
)

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null;index"           json:"name"`
	Description string    `json:"description"`
	ParentID    *uint     `gorm:"index"                    json:"parent_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name        string          `gorm:"not null;index"                  json:"name"`
	SKU         string          `gorm:"column:sku;uniqueIndex;not null" json:"sku"`
	Description string          `json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null"     json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Status      string          `gorm:"not null;default:active;index"   json:"status"`
	CategoryID  *uint           `gorm:"index"                           json:"category_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Order struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	UserID      uint            `gorm:"index;not null"                 json:"user_id"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null"    json:"total_amount"`
	Status      string          `gorm:"not null;default:pending;index" json:"status"`
	Items       []OrderItem     `gorm:"constraint:OnDelete:CASCADE"    json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderItem snapshots quantity and unit price at order creation time.
// Rows are never mutated afterwards.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	OrderID   uint            `gorm:"index;not null"                 json:"order_id"`
	ProductID uint            `gorm:"not null"                       json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity > 0"    json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(10,2);not null"    json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(10,2);not null"    json:"subtotal"`
}

type Payment struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	OrderID       uint            `gorm:"index;not null"                 json:"order_id"`
	Provider      string          `gorm:"index;not null"                 json:"provider"`
	TransactionID string          `gorm:"uniqueIndex;not null"           json:"transaction_id"`
	Status        string          `gorm:"not null;default:pending;index" json:"status"`
	RawResponse   json.RawMessage `gorm:"type:jsonb"                     json:"raw_response,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
