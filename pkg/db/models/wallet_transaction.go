package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/pkg/enums"
)

// WalletTransaction is one append-only ledger row. Amount is always positive;
// direction says which way the money moved. The (account_id, idempotency_key)
// pair is unique so client retries can be replayed instead of re-applied.
type WalletTransaction struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	AccountID      uuid.UUID                  `gorm:"column:account_id;type:uuid;not null;index;uniqueIndex:idx_wallet_tx_account_idem,priority:1"`
	Amount         int64                      `gorm:"column:amount;not null"`
	Direction      enums.TransactionDirection `gorm:"column:direction;type:text;not null"`
	Type           enums.TransactionType      `gorm:"column:type;type:text;not null"`
	Status         enums.TransactionStatus    `gorm:"column:status;type:text;not null;default:'completed'"`
	RelatedOrderID *uuid.UUID                 `gorm:"column:related_order_id;type:uuid;index"`
	IdempotencyKey string                     `gorm:"column:idempotency_key;not null;uniqueIndex:idx_wallet_tx_account_idem,priority:2"`
	Destination    *string                    `gorm:"column:destination"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
