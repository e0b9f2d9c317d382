package payments

import (
	"context"

	"github.com/pawmart/pawmart-backend/pkg/enums"
)

// Outcome is the external rail's answer to an authorization attempt.
type Outcome string

const (
	OutcomeAuthorized Outcome = "authorized"
	OutcomeDeclined   Outcome = "declined"
	OutcomePending    Outcome = "pending"
)

// AuthorizeInput describes one charge attempt against an external rail.
type AuthorizeInput struct {
	AmountCents int64
	Method      enums.PaymentMethod
	// Reference ties the attempt to the order or top-up that caused it.
	Reference string
}

// Result reports the rail's decision. The adapter never mutates the ledger;
// recording money movement is always the caller's job.
type Result struct {
	Outcome   Outcome
	Reference string
}

// Adapter abstracts the card/UPI rails behind a single authorize call.
type Adapter interface {
	Authorize(ctx context.Context, input AuthorizeInput) (Result, error)
}

// TransferState is the settlement status of an outbound transfer.
type TransferState string

const (
	TransferSettled TransferState = "settled"
	TransferFailed  TransferState = "failed"
	TransferPending TransferState = "pending"
)

// SettlementGateway reports the fate of withdrawals already debited from a
// wallet. Polled by the transfer worker.
type SettlementGateway interface {
	CheckTransfer(ctx context.Context, reference string, destination string) (TransferState, error)
}
