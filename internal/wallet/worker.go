package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/internal/payments"
	"github.com/pawmart/pawmart-backend/pkg/config"
	"github.com/pawmart/pawmart-backend/pkg/logger"
)

// Worker polls pending withdrawals and resolves them against the settlement
// gateway. Confirmation is idempotent end to end, so overlapping workers or a
// crashed poll cycle cannot double-settle a transfer.
type Worker struct {
	store   ledger.Store
	wallet  Service
	gateway payments.SettlementGateway
	cfg     config.TransferConfig
	logg    *logger.Logger
}

// NewWorker wires the transfer settlement worker.
func NewWorker(store ledger.Store, wallet Service, gateway payments.SettlementGateway, cfg config.TransferConfig, logg *logger.Logger) (*Worker, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("settlement gateway required")
	}
	return &Worker{store: store, wallet: wallet, gateway: gateway, cfg: cfg, logg: logg}, nil
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil && w.logg != nil {
			w.logg.Error(ctx, "transfer settlement cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce processes a single batch of pending withdrawals.
func (w *Worker) RunOnce(ctx context.Context) error {
	pending, err := w.store.PendingWithdrawals(ctx, w.cfg.SettleAfter, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, txn := range pending {
		dest := ""
		if txn.Destination != nil {
			dest = *txn.Destination
		}
		state, checkErr := w.gateway.CheckTransfer(ctx, txn.ID.String(), dest)
		if checkErr != nil {
			if w.logg != nil {
				lctx := w.logg.WithField(ctx, "transaction_id", txn.ID)
				w.logg.Warn(lctx, "settlement check failed, will retry next cycle")
			}
			continue
		}
		if state == payments.TransferPending {
			continue
		}
		if _, settleErr := w.wallet.ConfirmTransfer(ctx, txn.ID, state == payments.TransferSettled); settleErr != nil {
			if w.logg != nil {
				lctx := w.logg.WithField(ctx, "transaction_id", txn.ID)
				w.logg.Error(lctx, "confirming transfer failed", settleErr)
			}
		}
	}
	return nil
}
