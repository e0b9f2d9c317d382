package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/pkg/db"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
)

// maxCASAttempts bounds the per-account compare-and-swap retry loop so no
// append spins forever under contention.
const maxCASAttempts = 5

const walletTxIdemConstraint = "idx_wallet_tx_account_idem"

var (
	errStaleAccount = errors.New("wallet account version moved")
	errKeyRaced     = errors.New("idempotency key inserted concurrently")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AppendInput captures one money movement to record on the ledger.
type AppendInput struct {
	OwnerID        uuid.UUID
	Amount         int64
	Direction      enums.TransactionDirection
	Type           enums.TransactionType
	Status         enums.TransactionStatus
	RelatedOrderID *uuid.UUID
	IdempotencyKey string
	Destination    *string
}

// Store is the durable, race-free ledger: an append-only transaction log plus
// a materialized per-account balance that is always re-derivable from it.
type Store interface {
	// WithTx returns a store whose operations join the supplied transaction
	// instead of opening their own. Used by orchestrators that must commit
	// ledger writes and aggregate updates atomically.
	WithTx(tx *gorm.DB) Store
	Append(ctx context.Context, input AppendInput) (*models.WalletTransaction, error)
	SettleTransfer(ctx context.Context, txnID uuid.UUID, succeeded bool) (*models.WalletTransaction, error)
	Balance(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Reconcile(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Ledger(ctx context.Context, ownerID uuid.UUID) ([]models.WalletTransaction, error)
	TransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error)
	PendingWithdrawals(ctx context.Context, olderThan time.Duration, limit int) ([]models.WalletTransaction, error)
	AccountIDs(ctx context.Context) ([]uuid.UUID, error)
	AccountByID(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error)
}

type store struct {
	repo    Repository
	runner  txRunner
	boundTx *gorm.DB
	metrics *metrics.LedgerMetrics
}

// NewStore wires a ledger store with the provided repository and runner.
func NewStore(repo Repository, runner txRunner, m *metrics.LedgerMetrics) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &store{repo: repo, runner: runner, metrics: m}, nil
}

func (s *store) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &store{repo: s.repo, runner: s.runner, boundTx: tx, metrics: s.metrics}
}

// run executes fn inside a unit of work: the bound transaction when present,
// otherwise a fresh one.
func (s *store) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.boundTx != nil {
		return fn(s.boundTx)
	}
	return s.runner.WithTx(ctx, fn)
}

// Append records one transaction and updates the cached balance in the same
// unit of work. A replayed idempotency key returns the previously recorded
// transaction instead of erroring, so caller retries are safe. A debit that
// would push the balance negative fails with INSUFFICIENT_BALANCE and applies
// nothing.
func (s *store) Append(ctx context.Context, input AppendInput) (*models.WalletTransaction, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = enums.TransactionStatusCompleted
	}

	var out *models.WalletTransaction
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		err := s.run(ctx, func(tx *gorm.DB) error {
			txn, appendErr := appendOnce(ctx, s.repo.WithTx(tx), input)
			if appendErr != nil {
				return appendErr
			}
			out = txn
			return nil
		})
		switch {
		case err == nil:
			if s.metrics != nil {
				s.metrics.IncTransaction(input.Type.String(), input.Direction.String())
			}
			return out, nil
		case errors.Is(err, errStaleAccount):
			continue
		case errors.Is(err, errKeyRaced):
			return s.findReplayed(ctx, input)
		default:
			return nil, err
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "wallet account under contention, retry").
		WithDetails(map[string]any{"owner_id": input.OwnerID})
}

// appendOnce performs a single optimistic attempt inside the given repo
// binding. It returns errStaleAccount when the balance CAS loses a race and
// errKeyRaced when another request inserted the same idempotency key first.
func appendOnce(ctx context.Context, repo Repository, input AppendInput) (*models.WalletTransaction, error) {
	account, err := ensureAccount(ctx, repo, input.OwnerID)
	if err != nil {
		return nil, err
	}

	if existing, findErr := repo.FindTransactionByKey(ctx, account.ID, input.IdempotencyKey); findErr == nil {
		// Success-replay: the original result stands, nothing is re-applied.
		return existing, nil
	} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "lookup idempotency key")
	}

	newBalance := account.Balance
	if input.Direction == enums.TransactionDirectionCredit {
		newBalance += input.Amount
	} else {
		newBalance -= input.Amount
	}
	if newBalance < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance, "debit exceeds wallet balance").
			WithDetails(map[string]any{
				"account_id": account.ID,
				"balance":    account.Balance,
				"amount":     input.Amount,
			})
	}

	swapped, err := repo.CompareAndSwapBalance(ctx, account.ID, newBalance, account.Version)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
	}
	if !swapped {
		return nil, errStaleAccount
	}

	txn := &models.WalletTransaction{
		AccountID:      account.ID,
		Amount:         input.Amount,
		Direction:      input.Direction,
		Type:           input.Type,
		Status:         input.Status,
		RelatedOrderID: input.RelatedOrderID,
		IdempotencyKey: input.IdempotencyKey,
		Destination:    input.Destination,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		if db.IsUniqueViolation(err, walletTxIdemConstraint) {
			return nil, errKeyRaced
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append transaction")
	}
	return txn, nil
}

func ensureAccount(ctx context.Context, repo Repository, ownerID uuid.UUID) (*models.WalletAccount, error) {
	account, err := repo.FindAccountByOwner(ctx, ownerID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}

	// Lazy creation on first wallet use.
	account = &models.WalletAccount{OwnerID: ownerID, Balance: 0, Version: 1}
	if createErr := repo.CreateAccount(ctx, account); createErr != nil {
		if db.IsUniqueViolation(createErr, "idx_wallet_accounts_owner") {
			return repo.FindAccountByOwner(ctx, ownerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create wallet account")
	}
	return account, nil
}

func (s *store) findReplayed(ctx context.Context, input AppendInput) (*models.WalletTransaction, error) {
	var out *models.WalletTransaction
	err := s.run(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindAccountByOwner(ctx, input.OwnerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
		}
		txn, err := repo.FindTransactionByKey(ctx, account.ID, input.IdempotencyKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load replayed transaction")
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SettleTransfer resolves a pending withdrawal after the external rail
// reports its outcome. Success completes the debit in place. Failure marks it
// failed and appends a compensating credit under a derived key, so a repeated
// callback can never double-credit.
func (s *store) SettleTransfer(ctx context.Context, txnID uuid.UUID, succeeded bool) (*models.WalletTransaction, error) {
	var out *models.WalletTransaction
	err := s.run(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		txn, err := repo.FindTransactionByID(ctx, txnID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
		}
		if txn.Direction != enums.TransactionDirectionDebit || txn.Type != enums.TransactionTypeWithdrawal {
			return pkgerrors.New(pkgerrors.CodeValidation, "transaction is not a withdrawal debit")
		}
		if txn.Status != enums.TransactionStatusPending {
			// Already settled; repeated callbacks are no-ops.
			out = txn
			return nil
		}

		if succeeded {
			moved, updErr := repo.UpdateTransactionStatus(ctx, txn.ID, enums.TransactionStatusPending, enums.TransactionStatusCompleted)
			if updErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "complete withdrawal")
			}
			if moved {
				txn.Status = enums.TransactionStatusCompleted
			}
			out = txn
			return nil
		}

		moved, updErr := repo.UpdateTransactionStatus(ctx, txn.ID, enums.TransactionStatusPending, enums.TransactionStatusFailed)
		if updErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "fail withdrawal")
		}
		if !moved {
			out = txn
			return nil
		}
		txn.Status = enums.TransactionStatusFailed

		account, accErr := s.accountByID(ctx, repo, txn.AccountID)
		if accErr != nil {
			return accErr
		}
		// The compensating credit carries its own key and never rewrites the
		// original debit row.
		comp := AppendInput{
			OwnerID:        account.OwnerID,
			Amount:         txn.Amount,
			Direction:      enums.TransactionDirectionCredit,
			Type:           enums.TransactionTypeTransfer,
			Status:         enums.TransactionStatusCompleted,
			IdempotencyKey: "transfer-reversal:" + txn.ID.String(),
		}
		if _, compErr := appendWithRetry(ctx, repo, comp); compErr != nil {
			return compErr
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// appendWithRetry reruns the optimistic append inside an already-open unit of
// work until the balance CAS sticks.
func appendWithRetry(ctx context.Context, repo Repository, input AppendInput) (*models.WalletTransaction, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		txn, err := appendOnce(ctx, repo, input)
		if errors.Is(err, errStaleAccount) {
			continue
		}
		if errors.Is(err, errKeyRaced) {
			account, accErr := repo.FindAccountByOwner(ctx, input.OwnerID)
			if accErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, accErr, "load wallet account")
			}
			return repo.FindTransactionByKey(ctx, account.ID, input.IdempotencyKey)
		}
		return txn, err
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "wallet account under contention, retry")
}

// Balance returns the cached projection. Owners without a wallet yet hold 0.
func (s *store) Balance(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var balance int64
	err := s.run(ctx, func(tx *gorm.DB) error {
		account, err := s.repo.WithTx(tx).FindAccountByOwner(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
		}
		balance = account.Balance
		return nil
	})
	return balance, err
}

// Reconcile folds the full transaction log: credits minus debits over every
// appended row. A failed withdrawal keeps its debit row and is offset by its
// compensating credit, so the fold must always equal the cached balance.
func (s *store) Reconcile(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var derived int64
	err := s.run(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindAccountByOwner(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
		}
		credits, err := repo.SumByDirection(ctx, account.ID, enums.TransactionDirectionCredit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum credits")
		}
		debits, err := repo.SumByDirection(ctx, account.ID, enums.TransactionDirectionDebit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum debits")
		}
		derived = credits - debits
		return nil
	})
	return derived, err
}

func (s *store) Ledger(ctx context.Context, ownerID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	err := s.run(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		account, err := repo.FindAccountByOwner(ctx, ownerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				txns = []models.WalletTransaction{}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
		}
		txns, err = repo.ListByAccount(ctx, account.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
		}
		return nil
	})
	return txns, err
}

func (s *store) TransactionsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	err := s.run(ctx, func(tx *gorm.DB) error {
		var listErr error
		txns, listErr = s.repo.WithTx(tx).ListByOrder(ctx, orderID)
		if listErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, listErr, "list order transactions")
		}
		return nil
	})
	return txns, err
}

// PendingWithdrawals returns withdrawal debits that have waited at least
// olderThan for external settlement.
func (s *store) PendingWithdrawals(ctx context.Context, olderThan time.Duration, limit int) ([]models.WalletTransaction, error) {
	cutoff := time.Now().Add(-olderThan)
	var txns []models.WalletTransaction
	err := s.run(ctx, func(tx *gorm.DB) error {
		var listErr error
		txns, listErr = s.repo.WithTx(tx).ListPendingWithdrawalsBefore(ctx, cutoff, limit)
		if listErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, listErr, "list pending withdrawals")
		}
		return nil
	})
	return txns, err
}

func (s *store) AccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.run(ctx, func(tx *gorm.DB) error {
		var listErr error
		ids, listErr = s.repo.WithTx(tx).ListAccountIDs(ctx)
		if listErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, listErr, "list accounts")
		}
		return nil
	})
	return ids, err
}

func (s *store) AccountByID(ctx context.Context, accountID uuid.UUID) (*models.WalletAccount, error) {
	var account *models.WalletAccount
	err := s.run(ctx, func(tx *gorm.DB) error {
		var accErr error
		account, accErr = s.accountByID(ctx, s.repo.WithTx(tx), accountID)
		return accErr
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *store) accountByID(ctx context.Context, repo Repository, accountID uuid.UUID) (*models.WalletAccount, error) {
	account, err := repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet account")
	}
	return account, nil
}

func validateAppend(input AppendInput) error {
	if input.OwnerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive integer of minor units")
	}
	if !input.Direction.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid direction %q", input.Direction))
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if input.Status != "" && !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", input.Status))
	}
	if input.IdempotencyKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	return nil
}
