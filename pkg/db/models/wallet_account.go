package models

import (
	"time"

	"github.com/google/uuid"
)

// WalletAccount holds the materialized balance for one owner. The balance is
// a cached projection of the transaction log and must stay re-derivable from
// it. Version guards every balance update (optimistic concurrency).
type WalletAccount struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:idx_wallet_accounts_owner"`
	Balance   int64     `gorm:"column:balance;not null;default:0"`
	Version   int64     `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
