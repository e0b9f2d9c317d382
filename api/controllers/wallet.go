package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/api/responses"
	"github.com/pawmart/pawmart-backend/api/validators"
	walletsvc "github.com/pawmart/pawmart-backend/internal/wallet"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/logger"
)

// WalletBalance handles GET /api/v1/wallet/balance.
func WalletBalance(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceResponse{OwnerID: actor.ID, BalanceCents: balance})
	}
}

// WalletLedger handles GET /api/v1/wallet/transactions.
func WalletLedger(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.Ledger(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLedgerResponse(txns))
	}
}

// WalletTopUp handles POST /api/v1/wallet/top-up.
func WalletTopUp(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload topUpRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		txn, err := svc.TopUp(r.Context(), walletsvc.TopUpInput{
			OwnerID:        actor.ID,
			Amount:         payload.AmountCents,
			Method:         method,
			IdempotencyKey: idempotencyKeyFromRequest(r, "top-up"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newTransactionResponse(txn))
	}
}

// WalletTransferOut handles POST /api/v1/wallet/transfers.
func WalletTransferOut(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transferOutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.TransferOut(r.Context(), walletsvc.TransferOutInput{
			OwnerID:        actor.ID,
			Amount:         payload.AmountCents,
			Destination:    payload.Destination,
			IdempotencyKey: idempotencyKeyFromRequest(r, "transfer"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, newTransactionResponse(txn))
	}
}

// idempotencyKeyFromRequest derives the ledger key from the client header so
// HTTP-level replay and ledger-level replay agree. A missing header falls
// back to a fresh key, keeping the ledger write valid but unreplayable.
func idempotencyKeyFromRequest(r *http.Request, scope string) string {
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		return scope + ":" + key
	}
	return scope + ":" + uuid.NewString()
}

type topUpRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Method      string `json:"method" validate:"required"`
}

type transferOutRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Destination string `json:"destination" validate:"required"`
}

type balanceResponse struct {
	OwnerID      uuid.UUID `json:"owner_id"`
	BalanceCents int64     `json:"balance_cents"`
}

type ledgerResponse struct {
	Transactions []transactionResponse `json:"transactions"`
}

type transactionResponse struct {
	ID             uuid.UUID  `json:"id"`
	AccountID      uuid.UUID  `json:"account_id"`
	AmountCents    int64      `json:"amount_cents"`
	Direction      string     `json:"direction"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	RelatedOrderID *uuid.UUID `json:"related_order_id,omitempty"`
	Destination    *string    `json:"destination,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func newLedgerResponse(txns []models.WalletTransaction) ledgerResponse {
	items := make([]transactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, newTransactionResponse(&txns[i]))
	}
	return ledgerResponse{Transactions: items}
}

func newTransactionResponse(txn *models.WalletTransaction) transactionResponse {
	return transactionResponse{
		ID:             txn.ID,
		AccountID:      txn.AccountID,
		AmountCents:    txn.Amount,
		Direction:      txn.Direction.String(),
		Type:           txn.Type.String(),
		Status:         txn.Status.String(),
		RelatedOrderID: txn.RelatedOrderID,
		Destination:    txn.Destination,
		CreatedAt:      txn.CreatedAt,
	}
}
