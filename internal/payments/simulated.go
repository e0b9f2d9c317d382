package payments

import (
	"context"
	"strings"

	"github.com/pawmart/pawmart-backend/pkg/config"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
)

// SimulatedAdapter is a deterministic stand-in for the real card/UPI rails.
// Outcomes derive from the amount so dev flows and tests are reproducible:
// amounts ending in 99 minor units decline, amounts ending in 95 stay
// pending, everything else authorizes.
type SimulatedAdapter struct {
	cfg config.PaymentsConfig
}

// NewSimulatedAdapter returns the deterministic adapter. The configured
// authorize timeout bounds each attempt the way a real rail call would be.
func NewSimulatedAdapter(cfg config.PaymentsConfig) *SimulatedAdapter {
	return &SimulatedAdapter{cfg: cfg}
}

func (a *SimulatedAdapter) Authorize(ctx context.Context, input AuthorizeInput) (Result, error) {
	if a.cfg.AuthorizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.AuthorizeTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authorize")
	}

	if input.AmountCents <= 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "authorize amount must be positive")
	}
	if !input.Method.RequiresExternalRail() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "method does not use an external rail")
	}

	switch input.AmountCents % 100 {
	case 99:
		return Result{Outcome: OutcomeDeclined, Reference: input.Reference}, nil
	case 95:
		return Result{Outcome: OutcomePending, Reference: input.Reference}, nil
	default:
		return Result{Outcome: OutcomeAuthorized, Reference: input.Reference}, nil
	}
}

// CheckTransfer settles every withdrawal except those whose destination
// contains "fail", which report a failed transfer.
func (a *SimulatedAdapter) CheckTransfer(_ context.Context, _ string, destination string) (TransferState, error) {
	if strings.Contains(strings.ToLower(destination), "fail") {
		return TransferFailed, nil
	}
	return TransferSettled, nil
}
