package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the slice of the catalog this core reads at order placement:
// price and availability. Catalog CRUD itself lives outside this service.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID   uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	Category   string    `gorm:"column:category;not null;default:'product'"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	// No default tag: gorm would drop a zero-value bool from the insert and
	// the column default would overwrite an explicit false. The migration
	// still defaults the column to true for rows created outside gorm.
	Available bool      `gorm:"column:available;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
