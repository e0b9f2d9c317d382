package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/internal/ledger"
	"github.com/pawmart/pawmart-backend/internal/payments"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
)

// CreditInput adds money to a wallet.
type CreditInput struct {
	OwnerID        uuid.UUID
	Amount         int64
	Type           enums.TransactionType
	RelatedOrderID *uuid.UUID
	IdempotencyKey string
}

// DebitInput removes money from a wallet; fails without partial effect when
// the balance cannot cover it.
type DebitInput struct {
	OwnerID        uuid.UUID
	Amount         int64
	Type           enums.TransactionType
	RelatedOrderID *uuid.UUID
	IdempotencyKey string
}

// TopUpInput funds a wallet from an external rail.
type TopUpInput struct {
	OwnerID        uuid.UUID
	Amount         int64
	Method         enums.PaymentMethod
	IdempotencyKey string
}

// TransferOutInput moves wallet money to an external destination.
type TransferOutInput struct {
	OwnerID        uuid.UUID
	Amount         int64
	Destination    string
	IdempotencyKey string
}

// Service is the money movement policy layer on top of the ledger store.
type Service interface {
	// WithTx returns a service whose ledger writes join the supplied
	// transaction.
	WithTx(tx *gorm.DB) Service
	Credit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input DebitInput) (*models.WalletTransaction, error)
	TopUp(ctx context.Context, input TopUpInput) (*models.WalletTransaction, error)
	TransferOut(ctx context.Context, input TransferOutInput) (*models.WalletTransaction, error)
	ConfirmTransfer(ctx context.Context, txnID uuid.UUID, succeeded bool) (*models.WalletTransaction, error)
	Balance(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Ledger(ctx context.Context, ownerID uuid.UUID) ([]models.WalletTransaction, error)
}

type service struct {
	store   ledger.Store
	adapter payments.Adapter
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires the wallet service.
func NewService(store ledger.Store, adapter payments.Adapter, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("payment adapter required")
	}
	return &service{store: store, adapter: adapter, logg: logg, metrics: m}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{store: s.store.WithTx(tx), adapter: s.adapter, logg: s.logg, metrics: s.metrics}
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.WalletTransaction, error) {
	return s.store.Append(ctx, ledger.AppendInput{
		OwnerID:        input.OwnerID,
		Amount:         input.Amount,
		Direction:      enums.TransactionDirectionCredit,
		Type:           input.Type,
		Status:         enums.TransactionStatusCompleted,
		RelatedOrderID: input.RelatedOrderID,
		IdempotencyKey: input.IdempotencyKey,
	})
}

func (s *service) Debit(ctx context.Context, input DebitInput) (*models.WalletTransaction, error) {
	return s.store.Append(ctx, ledger.AppendInput{
		OwnerID:        input.OwnerID,
		Amount:         input.Amount,
		Direction:      enums.TransactionDirectionDebit,
		Type:           input.Type,
		Status:         enums.TransactionStatusCompleted,
		RelatedOrderID: input.RelatedOrderID,
		IdempotencyKey: input.IdempotencyKey,
	})
}

// TopUp authorizes the external charge first and credits the wallet only on
// an authorized outcome. A pending rail outcome is surfaced as retryable
// without touching the ledger.
func (s *service) TopUp(ctx context.Context, input TopUpInput) (*models.WalletTransaction, error) {
	if !input.Method.RequiresExternalRail() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up requires a card or upi payment method")
	}

	result, err := s.adapter.Authorize(ctx, payments.AuthorizeInput{
		AmountCents: input.Amount,
		Method:      input.Method,
		Reference:   "top-up:" + input.IdempotencyKey,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authorize top-up")
	}
	switch result.Outcome {
	case payments.OutcomeAuthorized:
		if s.metrics != nil {
			s.metrics.IncAuthorized(input.Method.String())
		}
	case payments.OutcomeDeclined:
		if s.metrics != nil {
			s.metrics.IncDeclined(input.Method.String())
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "top-up was declined").
			WithDetails(map[string]any{"method": input.Method, "amount": input.Amount})
	case payments.OutcomePending:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "top-up pending at external rail, retry with the same key")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("unknown authorize outcome %q", result.Outcome))
	}

	return s.Credit(ctx, CreditInput{
		OwnerID:        input.OwnerID,
		Amount:         input.Amount,
		Type:           enums.TransactionTypeTopUp,
		IdempotencyKey: input.IdempotencyKey,
	})
}

// TransferOut debits the wallet immediately and records the withdrawal as
// pending; the transfer worker later confirms or compensates it. Funds leave
// the ledger atomically here, never inside the external confirmation.
func (s *service) TransferOut(ctx context.Context, input TransferOutInput) (*models.WalletTransaction, error) {
	if input.Destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	dest := input.Destination
	return s.store.Append(ctx, ledger.AppendInput{
		OwnerID:        input.OwnerID,
		Amount:         input.Amount,
		Direction:      enums.TransactionDirectionDebit,
		Type:           enums.TransactionTypeWithdrawal,
		Status:         enums.TransactionStatusPending,
		IdempotencyKey: input.IdempotencyKey,
		Destination:    &dest,
	})
}

// ConfirmTransfer is the asynchronous settlement callback. Failure issues a
// compensating credit under a derived key; the original debit is never
// rewritten.
func (s *service) ConfirmTransfer(ctx context.Context, txnID uuid.UUID, succeeded bool) (*models.WalletTransaction, error) {
	txn, err := s.store.SettleTransfer(ctx, txnID, succeeded)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"transaction_id": txn.ID,
			"status":         txn.Status,
		})
		s.logg.Info(lctx, "withdrawal settled")
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return s.store.Balance(ctx, ownerID)
}

func (s *service) Ledger(ctx context.Context, ownerID uuid.UUID) ([]models.WalletTransaction, error) {
	return s.store.Ledger(ctx, ownerID)
}
