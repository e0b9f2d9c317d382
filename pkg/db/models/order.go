package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/pkg/enums"
	"github.com/pawmart/pawmart-backend/pkg/types"
)

// Order is the aggregate root of the order state machine. Every mutation is
// version-guarded; rows are never deleted, terminal orders stay as records.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID         uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID        uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending_payment'"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TotalCents      int64               `gorm:"column:total_cents;not null"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Version         int64               `gorm:"column:version;not null;default:1"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ConfirmedAt     *time.Time          `gorm:"column:confirmed_at"`
	ShippedAt       *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt     *time.Time          `gorm:"column:delivered_at"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
