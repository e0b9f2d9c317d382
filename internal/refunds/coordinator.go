package refunds

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/internal/wallet"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
)

// RefundKey derives the ledger idempotency key for an order's refund. One
// order can only ever produce one refund credit.
func RefundKey(order *models.Order) string {
	return "refund:" + order.ID.String()
}

// Coordinator resolves what happens to an order's money when the order is
// cancelled. It decides the resulting payment status but never mutates the
// order row itself.
type Coordinator struct {
	wallet  wallet.Service
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewCoordinator wires the refund coordinator.
func NewCoordinator(walletSvc wallet.Service, logg *logger.Logger, m *metrics.LedgerMetrics) (*Coordinator, error) {
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	return &Coordinator{wallet: walletSvc, logg: logg, metrics: m}, nil
}

// Refund settles the money side of a cancellation inside tx and returns the
// payment status the order should carry afterwards. Captured money goes back
// to the buyer's wallet regardless of the original payment method. A ledger
// failure aborts before any order state changes; the derived refund key makes
// a repeated cancellation replay the original credit instead of paying twice.
func (c *Coordinator) Refund(ctx context.Context, tx *gorm.DB, order *models.Order) (enums.PaymentStatus, error) {
	if order == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}

	switch order.PaymentStatus {
	case enums.PaymentStatusRefunded, enums.PaymentStatusVoided:
		// Cancellation already settled the money; nothing more to do.
		return order.PaymentStatus, nil
	case enums.PaymentStatusUnpaid, enums.PaymentStatusFailed:
		// Nothing was captured, so there is nothing to return.
		return enums.PaymentStatusVoided, nil
	case enums.PaymentStatusPaid:
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unexpected payment status %q", order.PaymentStatus))
	}

	orderID := order.ID
	_, err := c.wallet.WithTx(tx).Credit(ctx, wallet.CreditInput{
		OwnerID:        order.BuyerID,
		Amount:         order.TotalCents,
		Type:           enums.TransactionTypeRefund,
		RelatedOrderID: &orderID,
		IdempotencyKey: RefundKey(order),
	})
	if err != nil {
		return "", err
	}
	if c.metrics != nil {
		c.metrics.IncRefund()
	}
	if c.logg != nil {
		lctx := c.logg.WithOrderID(ctx, order.ID.String())
		c.logg.Info(lctx, "refund credited to buyer wallet")
	}
	return enums.PaymentStatusRefunded, nil
}
