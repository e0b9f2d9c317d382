package wallet

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/internal/payments"
	"github.com/pawmart/pawmart-backend/pkg/config"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
)

type testRunner struct {
	db *gorm.DB
}

func (r testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupWalletTest(t *testing.T) (Service, ledger.Store) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.WalletAccount{}, &models.WalletTransaction{}))

	store, err := ledger.NewStore(ledger.NewRepository(conn), testRunner{db: conn}, nil)
	require.NoError(t, err)

	svc, err := NewService(store, payments.NewSimulatedAdapter(config.PaymentsConfig{}), nil, nil)
	require.NoError(t, err)
	return svc, store
}

func TestTopUpAuthorizedCreditsWallet(t *testing.T) {
	svc, _ := setupWalletTest(t)
	ctx := context.Background()
	owner := uuid.New()

	txn, err := svc.TopUp(ctx, TopUpInput{
		OwnerID:        owner,
		Amount:         2000,
		Method:         enums.PaymentMethodCard,
		IdempotencyKey: "topup-1",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionTypeTopUp, txn.Type)
	assert.Equal(t, enums.TransactionDirectionCredit, txn.Direction)

	balance, err := svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), balance)
}

func TestTopUpDeclinedLeavesLedgerUntouched(t *testing.T) {
	svc, _ := setupWalletTest(t)
	ctx := context.Background()
	owner := uuid.New()

	// Amounts ending in 99 decline on the simulated rail.
	_, err := svc.TopUp(ctx, TopUpInput{
		OwnerID:        owner,
		Amount:         1099,
		Method:         enums.PaymentMethodUPI,
		IdempotencyKey: "topup-1",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentDeclined))

	balance, err := svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestTopUpPendingIsRetryable(t *testing.T) {
	svc, _ := setupWalletTest(t)
	ctx := context.Background()

	// Amounts ending in 95 stay pending on the simulated rail.
	_, err := svc.TopUp(ctx, TopUpInput{
		OwnerID:        uuid.New(),
		Amount:         1095,
		Method:         enums.PaymentMethodCard,
		IdempotencyKey: "topup-1",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestTopUpRejectsWalletMethod(t *testing.T) {
	svc, _ := setupWalletTest(t)

	_, err := svc.TopUp(context.Background(), TopUpInput{
		OwnerID:        uuid.New(),
		Amount:         500,
		Method:         enums.PaymentMethodWallet,
		IdempotencyKey: "topup-1",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestTransferOutRecordsPendingDebit(t *testing.T) {
	svc, _ := setupWalletTest(t)
	ctx := context.Background()
	owner := uuid.New()

	_, err := svc.TopUp(ctx, TopUpInput{OwnerID: owner, Amount: 1000, Method: enums.PaymentMethodCard, IdempotencyKey: "seed"})
	require.NoError(t, err)

	txn, err := svc.TransferOut(ctx, TransferOutInput{
		OwnerID:        owner,
		Amount:         600,
		Destination:    "bank-789",
		IdempotencyKey: "withdraw-1",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPending, txn.Status)
	assert.Equal(t, enums.TransactionTypeWithdrawal, txn.Type)
	require.NotNil(t, txn.Destination)
	assert.Equal(t, "bank-789", *txn.Destination)

	balance, err := svc.Balance(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(400), balance)
}

func TestTransferOutInsufficientFunds(t *testing.T) {
	svc, _ := setupWalletTest(t)

	_, err := svc.TransferOut(context.Background(), TransferOutInput{
		OwnerID:        uuid.New(),
		Amount:         600,
		Destination:    "bank-789",
		IdempotencyKey: "withdraw-1",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance))
}
