package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/internal/catalog"
	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/internal/payments"
	"github.com/pawmart/pawmart-backend/internal/refunds"
	"github.com/pawmart/pawmart-backend/internal/wallet"
	"github.com/pawmart/pawmart-backend/pkg/config"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/pagination"
	"github.com/pawmart/pawmart-backend/pkg/types"
)

type testRunner struct {
	db *gorm.DB
}

func (r testRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type orderFixture struct {
	svc    Service
	wallet wallet.Service
	ledger ledger.Store
	db     *gorm.DB
}

func setupOrderTest(t *testing.T) *orderFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	))

	runner := testRunner{db: conn}
	store, err := ledger.NewStore(ledger.NewRepository(conn), runner, nil)
	require.NoError(t, err)
	adapter := payments.NewSimulatedAdapter(config.PaymentsConfig{})
	walletSvc, err := wallet.NewService(store, adapter, nil, nil)
	require.NoError(t, err)
	refundCoord, err := refunds.NewCoordinator(walletSvc, nil, nil)
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)

	svc, err := NewService(NewRepository(conn), runner, catalogSvc, walletSvc, adapter, refundCoord, nil, nil, nil)
	require.NoError(t, err)

	return &orderFixture{svc: svc, wallet: walletSvc, ledger: store, db: conn}
}

func (f *orderFixture) seedProduct(t *testing.T, sellerID uuid.UUID, priceCents int64) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:   sellerID,
		Name:       "chew toy",
		Category:   "product",
		PriceCents: priceCents,
		Available:  true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *orderFixture) fundWallet(t *testing.T, ownerID uuid.UUID, amount int64) {
	t.Helper()
	_, err := f.wallet.Credit(context.Background(), wallet.CreditInput{
		OwnerID:        ownerID,
		Amount:         amount,
		Type:           enums.TransactionTypeTopUp,
		IdempotencyKey: "seed:" + uuid.NewString(),
	})
	require.NoError(t, err)
}

func testAddress() types.Address {
	return types.Address{
		Line1:      "12 Bark Lane",
		City:       "Pawville",
		PostalCode: "560001",
		Country:    "IN",
	}
}

func placeInput(buyerID uuid.UUID, method enums.PaymentMethod, items ...ItemInput) PlaceOrderInput {
	return PlaceOrderInput{
		BuyerID:         buyerID,
		PaymentMethod:   method,
		ShippingAddress: testAddress(),
		Items:           items,
	}
}

func TestPlaceOrderWalletPaid(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 500)
	f.fundWallet(t, buyer, 2000)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 2}))
	require.NoError(t, err)
	require.True(t, result.Paid)
	require.Nil(t, result.PaymentError)

	order := result.Order
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, int64(1000), order.TotalCents)
	assert.Equal(t, seller, order.SellerID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(500), order.Items[0].UnitPriceCents)
	require.NotNil(t, order.ConfirmedAt)

	balance, err := f.wallet.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	txns, err := f.ledger.TransactionsByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, enums.TransactionTypePurchase, txns[0].Type)
}

func TestPlaceOrderInsufficientFundsKeepsOrderRetryable(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 5000)
	f.fundWallet(t, buyer, 100)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.False(t, result.Paid)
	require.Error(t, result.PaymentError)
	assert.True(t, pkgerrors.HasCode(result.PaymentError, pkgerrors.CodeInsufficientBalance))

	assert.Equal(t, enums.OrderStatusPendingPayment, result.Order.Status)
	assert.Equal(t, enums.PaymentStatusFailed, result.Order.PaymentStatus)

	balance, err := f.wallet.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance, "failed capture must not move money")
}

func TestRetryPaymentAfterTopUp(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 5000)
	f.fundWallet(t, buyer, 100)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	require.False(t, result.Paid)

	f.fundWallet(t, buyer, 10000)

	actor := Actor{ID: buyer, Role: enums.ActorRoleBuyer}
	order, err := f.svc.RetryPayment(ctx, result.Order.ID, actor, result.Order.Version)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)

	balance, err := f.wallet.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(5100), balance)

	// A confirmed order has nothing left to retry.
	_, err = f.svc.RetryPayment(ctx, result.Order.ID, actor, order.Version)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))
}

func TestPlaceOrderCardDeclined(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	// Totals ending in 99 decline on the simulated rail.
	product := f.seedProduct(t, seller, 1099)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodCard,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.False(t, result.Paid)
	require.Error(t, result.PaymentError)
	assert.True(t, pkgerrors.HasCode(result.PaymentError, pkgerrors.CodePaymentDeclined))
	assert.Equal(t, enums.OrderStatusPendingPayment, result.Order.Status)
}

func TestPlaceOrderCashOnDelivery(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 750)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodCOD,
		ItemInput{ProductID: product.ID, Quantity: 2}))
	require.NoError(t, err)
	assert.False(t, result.Paid)
	assert.Nil(t, result.PaymentError)
	assert.Equal(t, enums.OrderStatusConfirmed, result.Order.Status)
	assert.Equal(t, enums.PaymentStatusUnpaid, result.Order.PaymentStatus)
}

func TestPlaceOrderRejectsUnavailableProduct(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 500)
	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("available", false).Error)

	_, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodCOD,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestPlaceOrderRejectsOwnProduct(t *testing.T) {
	f := setupOrderTest(t)
	seller := uuid.New()
	product := f.seedProduct(t, seller, 500)

	_, err := f.svc.PlaceOrder(context.Background(), placeInput(seller, enums.PaymentMethodCOD,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCancelRefundsWalletExactlyOnce(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 800)
	f.fundWallet(t, buyer, 1000)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	require.True(t, result.Paid)

	actor := Actor{ID: buyer, Role: enums.ActorRoleBuyer}
	cancelled, err := f.svc.CancelOrder(ctx, result.Order.ID, actor, result.Order.Version)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, cancelled.PaymentStatus)
	require.NotNil(t, cancelled.CancelledAt)

	balance, err := f.wallet.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	// Cancelling again is a no-op success with no second refund.
	again, err := f.svc.CancelOrder(ctx, result.Order.ID, actor, cancelled.Version)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, again.Status)

	txns, err := f.ledger.TransactionsByOrder(ctx, result.Order.ID)
	require.NoError(t, err)
	refundCount := 0
	for _, txn := range txns {
		if txn.Type == enums.TransactionTypeRefund {
			refundCount++
		}
	}
	assert.Equal(t, 1, refundCount)
}

func TestCancelUnpaidOrderVoidsPayment(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 5000)
	f.fundWallet(t, buyer, 100)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	require.False(t, result.Paid)

	cancelled, err := f.svc.CancelOrder(ctx, result.Order.ID, Actor{ID: buyer, Role: enums.ActorRoleBuyer}, result.Order.Version)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.PaymentStatusVoided, cancelled.PaymentStatus)
}

func TestShippingPipelineAndTerminalStates(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 600)
	f.fundWallet(t, buyer, 600)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	orderID := result.Order.ID
	sellerActor := Actor{ID: seller, Role: enums.ActorRoleSeller}
	buyerActor := Actor{ID: buyer, Role: enums.ActorRoleBuyer}

	version := result.Order.Version

	// Buyers may not push the shipping pipeline.
	_, err = f.svc.AdvanceStatus(ctx, orderID, enums.OrderStatusProcessing, buyerActor, version)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	// Skipping a step is rejected.
	_, err = f.svc.AdvanceStatus(ctx, orderID, enums.OrderStatusShipped, sellerActor, version)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))

	for _, next := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	} {
		order, advErr := f.svc.AdvanceStatus(ctx, orderID, next, sellerActor, version)
		require.NoError(t, advErr)
		assert.Equal(t, next, order.Status)
		version = order.Version
	}

	delivered, err := f.svc.GetOrder(ctx, orderID, sellerActor)
	require.NoError(t, err)
	require.NotNil(t, delivered.ShippedAt)
	require.NotNil(t, delivered.DeliveredAt)

	// Delivered is terminal: no further moves, no cancellation.
	_, err = f.svc.AdvanceStatus(ctx, orderID, enums.OrderStatusProcessing, sellerActor, version)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))

	_, err = f.svc.CancelOrder(ctx, orderID, buyerActor, version)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotCancellable))
}

func TestCancelAfterShippedNotCancellable(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 600)
	f.fundWallet(t, buyer, 600)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	sellerActor := Actor{ID: seller, Role: enums.ActorRoleSeller}
	processing, err := f.svc.AdvanceStatus(ctx, result.Order.ID, enums.OrderStatusProcessing, sellerActor, result.Order.Version)
	require.NoError(t, err)
	shipped, err := f.svc.AdvanceStatus(ctx, result.Order.ID, enums.OrderStatusShipped, sellerActor, processing.Version)
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, result.Order.ID, Actor{ID: buyer, Role: enums.ActorRoleBuyer}, shipped.Version)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotCancellable))

	balance, err := f.wallet.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "no refund for an uncancellable order")
}

func TestCODDeliveredMarksPaid(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 600)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodCOD,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	sellerActor := Actor{ID: seller, Role: enums.ActorRoleSeller}
	version := result.Order.Version
	for _, next := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusOutForDelivery,
		enums.OrderStatusDelivered,
	} {
		advanced, advErr := f.svc.AdvanceStatus(ctx, result.Order.ID, next, sellerActor, version)
		require.NoError(t, advErr)
		version = advanced.Version
	}

	order, err := f.svc.GetOrder(ctx, result.Order.ID, sellerActor)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
}

func TestGetOrderHidesOthersOrders(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 600)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodCOD,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.svc.GetOrder(ctx, result.Order.ID, Actor{ID: uuid.New(), Role: enums.ActorRoleBuyer})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	// Admins see everything.
	_, err = f.svc.GetOrder(ctx, result.Order.ID, Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin})
	require.NoError(t, err)
}

func TestListOrdersPaginates(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 100)

	for i := 0; i < 3; i++ {
		_, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodCOD,
			ItemInput{ProductID: product.ID, Quantity: 1}))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	actor := Actor{ID: buyer, Role: enums.ActorRoleBuyer}
	first, err := f.svc.ListOrders(ctx, actor, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.ListOrders(ctx, actor, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)

	// Sellers list their side of the same orders.
	sellerPage, err := f.svc.ListOrders(ctx, Actor{ID: seller, Role: enums.ActorRoleSeller}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, sellerPage.Orders, 3)
}

func TestExpirePendingCancelsStaleOrders(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 5000)
	f.fundWallet(t, buyer, 100)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPendingPayment, result.Order.Status)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, f.db.Model(&models.Order{}).
		Where("id = ?", result.Order.ID).
		Update("created_at", stale).Error)

	cancelled, err := f.svc.ExpirePending(ctx, 24*time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	order, err := f.svc.GetOrder(ctx, result.Order.ID, Actor{ID: buyer, Role: enums.ActorRoleBuyer})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	assert.Equal(t, enums.PaymentStatusVoided, order.PaymentStatus)

	// Nothing left to expire.
	cancelled, err = f.svc.ExpirePending(ctx, 24*time.Hour, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, cancelled)
}

func TestCancelWhileProcessingRefunds(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 300)
	f.fundWallet(t, buyer, 500)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)
	require.True(t, result.Paid)

	processing, err := f.svc.AdvanceStatus(ctx, result.Order.ID, enums.OrderStatusProcessing,
		Actor{ID: seller, Role: enums.ActorRoleSeller}, result.Order.Version)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelOrder(ctx, result.Order.ID,
		Actor{ID: buyer, Role: enums.ActorRoleBuyer}, processing.Version)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, cancelled.PaymentStatus)

	balance, err := f.wallet.Balance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance, "full refund after cancelling mid-fulfilment")

	derived, err := f.ledger.Reconcile(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, balance, derived)
}

func TestStaleVersionIsRejected(t *testing.T) {
	f := setupOrderTest(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := f.seedProduct(t, seller, 600)
	f.fundWallet(t, buyer, 600)

	result, err := f.svc.PlaceOrder(ctx, placeInput(buyer, enums.PaymentMethodWallet,
		ItemInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	sellerActor := Actor{ID: seller, Role: enums.ActorRoleSeller}
	staleVersion := result.Order.Version
	_, err = f.svc.AdvanceStatus(ctx, result.Order.ID, enums.OrderStatusProcessing, sellerActor, staleVersion)
	require.NoError(t, err)

	// Writes carrying the pre-transition version must be refused.
	_, err = f.svc.AdvanceStatus(ctx, result.Order.ID, enums.OrderStatusShipped, sellerActor, staleVersion)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeVersionConflict))

	_, err = f.svc.CancelOrder(ctx, result.Order.ID, Actor{ID: buyer, Role: enums.ActorRoleBuyer}, staleVersion)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeVersionConflict))

	_, err = f.svc.RetryPayment(ctx, result.Order.ID, Actor{ID: buyer, Role: enums.ActorRoleBuyer}, staleVersion)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeVersionConflict))

	// The current version still moves the order.
	order, err := f.svc.GetOrder(ctx, result.Order.ID, sellerActor)
	require.NoError(t, err)
	shipped, err := f.svc.AdvanceStatus(ctx, result.Order.ID, enums.OrderStatusShipped, sellerActor, order.Version)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, shipped.Status)
}
