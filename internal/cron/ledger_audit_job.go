package cron

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
)

const auditConcurrency = 8

// LedgerAuditJob re-derives every account balance from the transaction log
// and flags any drift from the cached projection. Drift means a bug, not
// data to repair automatically; the job only reports.
type LedgerAuditJob struct {
	store   ledger.Store
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewLedgerAuditJob wires the audit job.
func NewLedgerAuditJob(store ledger.Store, logg *logger.Logger, m *metrics.LedgerMetrics) (*LedgerAuditJob, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	return &LedgerAuditJob{store: store, logg: logg, metrics: m}, nil
}

func (j *LedgerAuditJob) Name() string {
	return "ledger-audit"
}

func (j *LedgerAuditJob) Run(ctx context.Context) error {
	ids, err := j.store.AccountIDs(ctx)
	if err != nil {
		return err
	}

	var drifted atomic.Int64
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(auditConcurrency)
	for _, id := range ids {
		accountID := id
		group.Go(func() error {
			account, accErr := j.store.AccountByID(gctx, accountID)
			if accErr != nil {
				return accErr
			}
			derived, recErr := j.store.Reconcile(gctx, account.OwnerID)
			if recErr != nil {
				return recErr
			}
			if derived != account.Balance {
				drifted.Add(1)
				if j.metrics != nil {
					j.metrics.IncReconcileDrift()
				}
				if j.logg != nil {
					lctx := j.logg.WithFields(gctx, map[string]any{
						"account_id": account.ID,
						"cached":     account.Balance,
						"derived":    derived,
					})
					j.logg.Warn(lctx, "ledger balance drift detected")
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	if n := drifted.Load(); n > 0 {
		return fmt.Errorf("%d account(s) drifted from their transaction log", n)
	}
	return nil
}
