package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts money movement outcomes so payment declines and
// reconciliation drift are visible without reading logs.
type LedgerMetrics struct {
	paymentsAuthorized *prometheus.CounterVec
	paymentsDeclined   *prometheus.CounterVec
	refundsIssued      prometheus.Counter
	transactions       *prometheus.CounterVec
	reconcileDrift     prometheus.Counter
}

// NewLedgerMetrics registers ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	paymentsAuthorized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_authorized_total",
		Help: "Payments authorized, by method.",
	}, []string{"method"})
	paymentsDeclined := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_declined_total",
		Help: "Payments declined, by method.",
	}, []string{"method"})
	refundsIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_issued_total",
		Help: "Refund credits appended to the wallet ledger.",
	})
	transactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transactions_total",
		Help: "Ledger transactions appended, by type and direction.",
	}, []string{"type", "direction"})
	reconcileDrift := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_reconcile_drift_total",
		Help: "Accounts whose cached balance disagreed with the transaction log.",
	})
	reg.MustRegister(paymentsAuthorized, paymentsDeclined, refundsIssued, transactions, reconcileDrift)
	return &LedgerMetrics{
		paymentsAuthorized: paymentsAuthorized,
		paymentsDeclined:   paymentsDeclined,
		refundsIssued:      refundsIssued,
		transactions:       transactions,
		reconcileDrift:     reconcileDrift,
	}
}

// IncAuthorized counts an authorized payment for the given method.
func (m *LedgerMetrics) IncAuthorized(method string) {
	if m == nil || m.paymentsAuthorized == nil {
		return
	}
	m.paymentsAuthorized.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncDeclined counts a declined payment for the given method.
func (m *LedgerMetrics) IncDeclined(method string) {
	if m == nil || m.paymentsDeclined == nil {
		return
	}
	m.paymentsDeclined.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncRefund counts a refund credit.
func (m *LedgerMetrics) IncRefund() {
	if m == nil || m.refundsIssued == nil {
		return
	}
	m.refundsIssued.Inc()
}

// IncTransaction counts an appended ledger transaction.
func (m *LedgerMetrics) IncTransaction(txType, direction string) {
	if m == nil || m.transactions == nil {
		return
	}
	m.transactions.WithLabelValues(normalizeLabel(txType), normalizeLabel(direction)).Inc()
}

// IncReconcileDrift counts a balance/log mismatch found by the audit job.
func (m *LedgerMetrics) IncReconcileDrift() {
	if m == nil || m.reconcileDrift == nil {
		return
	}
	m.reconcileDrift.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
