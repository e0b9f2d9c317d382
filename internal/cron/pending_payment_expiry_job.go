package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/pawmart/pawmart-backend/internal/orders"
	"github.com/pawmart/pawmart-backend/pkg/logger"
)

const expiryBatchSize = 200

// PendingPaymentExpiryJob cancels orders that sat unpaid past their TTL so
// abandoned checkouts do not linger forever.
type PendingPaymentExpiryJob struct {
	orders orders.Service
	ttl    time.Duration
	logg   *logger.Logger
}

// NewPendingPaymentExpiryJob wires the expiry job.
func NewPendingPaymentExpiryJob(orderSvc orders.Service, ttl time.Duration, logg *logger.Logger) (*PendingPaymentExpiryJob, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	return &PendingPaymentExpiryJob{orders: orderSvc, ttl: ttl, logg: logg}, nil
}

func (j *PendingPaymentExpiryJob) Name() string {
	return "pending-payment-expiry"
}

func (j *PendingPaymentExpiryJob) Run(ctx context.Context) error {
	cancelled, err := j.orders.ExpirePending(ctx, j.ttl, expiryBatchSize)
	if err != nil {
		return err
	}
	if cancelled > 0 && j.logg != nil {
		lctx := j.logg.WithField(ctx, "cancelled", cancelled)
		j.logg.Info(lctx, "expired unpaid orders")
	}
	return nil
}
