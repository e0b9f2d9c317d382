package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
)

// Repository manages persistence for wallet accounts and the transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccountByOwner(ctx context.Context, ownerID uuid.UUID) (*models.WalletAccount, error)
	FindAccountByID(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error)
	CreateAccount(ctx context.Context, account *models.WalletAccount) error
	CompareAndSwapBalance(ctx context.Context, accountID uuid.UUID, newBalance, expectedVersion int64) (bool, error)
	FindTransactionByKey(ctx context.Context, accountID uuid.UUID, idempotencyKey string) (*models.WalletTransaction, error)
	FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus) (bool, error)
	SumByDirection(ctx context.Context, accountID uuid.UUID, direction enums.TransactionDirection) (int64, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.WalletTransaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error)
	ListPendingWithdrawalsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.WalletTransaction, error)
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccountByOwner(ctx context.Context, ownerID uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByID(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *models.WalletAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// CompareAndSwapBalance applies the balance projection update only when the
// stored version still matches; the caller retries on a miss.
func (r *repository) CompareAndSwapBalance(ctx context.Context, accountID uuid.UUID, newBalance, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("id = ? AND version = ?", accountID, expectedVersion).
		Updates(map[string]any{
			"balance": newBalance,
			"version": expectedVersion + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindTransactionByKey(ctx context.Context, accountID uuid.UUID, idempotencyKey string) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND idempotency_key = ?", accountID, idempotencyKey).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindTransactionByID(ctx context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// UpdateTransactionStatus moves a row between settlement states, guarded by
// the expected current state so repeated worker callbacks stay idempotent.
func (r *repository) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to enums.TransactionStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SumByDirection(ctx context.Context, accountID uuid.UUID, direction enums.TransactionDirection) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("account_id = ? AND direction = ?", accountID, direction).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("related_order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// ListPendingWithdrawalsBefore returns pending withdrawal debits created
// before cutoff, oldest first, for the settlement worker.
func (r *repository) ListPendingWithdrawalsBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	q := r.db.WithContext(ctx).
		Where("status = ? AND type = ? AND direction = ?",
			enums.TransactionStatusPending, enums.TransactionTypeWithdrawal, enums.TransactionDirectionDebit).
		Where("created_at <= ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
