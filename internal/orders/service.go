package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawmart/pawmart-backend/internal/catalog"
	"github.com/pawmart/pawmart-backend/internal/notifications"
	"github.com/pawmart/pawmart-backend/internal/payments"
	"github.com/pawmart/pawmart-backend/internal/refunds"
	"github.com/pawmart/pawmart-backend/internal/wallet"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/metrics"
	"github.com/pawmart/pawmart-backend/pkg/pagination"
)

// PaymentKey derives the ledger idempotency key for an order's purchase
// debit. Placement and retries share it, so the buyer can never be charged
// twice for one order.
func PaymentKey(orderID uuid.UUID) string {
	return "order:" + orderID.String()
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the order lifecycle orchestrator: placement, payment capture,
// shipping transitions, cancellation and refunds. Mutations take the version
// the caller last observed; a write against a changed order fails with a
// version conflict instead of acting on state the caller never saw.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	RetryPayment(ctx context.Context, orderID uuid.UUID, actor Actor, version int64) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListOrders(ctx context.Context, actor Actor, params pagination.Params) (*Page, error)
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor, version int64) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor, version int64) (*models.Order, error)
	// ExpirePending cancels pending_payment orders older than ttl. Used by
	// the cron worker; returns how many orders were cancelled.
	ExpirePending(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

type service struct {
	repo      Repository
	runner    txRunner
	catalog   catalog.Service
	wallet    wallet.Service
	adapter   payments.Adapter
	refunds   *refunds.Coordinator
	events    *notifications.Publisher
	logg      *logger.Logger
	metrics   *metrics.LedgerMetrics
}

// NewService wires the order service.
func NewService(
	repo Repository,
	runner txRunner,
	catalogSvc catalog.Service,
	walletSvc wallet.Service,
	adapter payments.Adapter,
	refundCoord *refunds.Coordinator,
	events *notifications.Publisher,
	logg *logger.Logger,
	m *metrics.LedgerMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("payment adapter required")
	}
	if refundCoord == nil {
		return nil, fmt.Errorf("refund coordinator required")
	}
	return &service{
		repo:    repo,
		runner:  runner,
		catalog: catalogSvc,
		wallet:  walletSvc,
		adapter: adapter,
		refunds: refundCoord,
		events:  events,
		logg:    logg,
		metrics: m,
	}, nil
}

// PlaceOrder prices the basket from the catalog, persists the order with
// snapshotted prices and attempts payment capture in the same transaction.
// A declined or underfunded payment still commits the order in
// pending_payment; an infrastructure failure commits nothing.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	var result PlaceOrderResult
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			ids = append(ids, item.ProductID)
		}
		snapshots, err := s.catalog.WithTx(tx).SnapshotAll(ctx, ids)
		if err != nil {
			return err
		}

		order, err := buildOrder(input, snapshots)
		if err != nil {
			return err
		}
		if order.SellerID == input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeValidation, "buyers cannot order their own products")
		}

		paid, payErr, err := s.capturePayment(ctx, tx, order)
		if err != nil {
			return err
		}
		if paid {
			now := time.Now().UTC()
			order.Status = enums.OrderStatusConfirmed
			order.PaymentStatus = enums.PaymentStatusPaid
			order.ConfirmedAt = &now
		} else if payErr != nil {
			order.PaymentStatus = enums.PaymentStatusFailed
		}
		if order.PaymentMethod == enums.PaymentMethodCOD {
			// Cash settles at the doorstep; the order proceeds unpaid.
			now := time.Now().UTC()
			order.Status = enums.OrderStatusConfirmed
			order.ConfirmedAt = &now
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		result = PlaceOrderResult{Order: order, Paid: paid, PaymentError: payErr}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Order.Status == enums.OrderStatusConfirmed {
		s.publishTransition(ctx, result.Order, enums.OrderStatusPendingPayment, enums.OrderStatusConfirmed)
	}
	if s.logg != nil {
		lctx := s.logg.WithOrderID(ctx, result.Order.ID.String())
		s.logg.Info(lctx, "order placed")
	}
	return &result, nil
}

// capturePayment attempts to collect the order total. Returns (paid,
// paymentError, infrastructureError): a payment refusal is data, not an
// error, so the order itself still persists.
func (s *service) capturePayment(ctx context.Context, tx *gorm.DB, order *models.Order) (bool, error, error) {
	switch order.PaymentMethod {
	case enums.PaymentMethodWallet:
		orderID := order.ID
		_, err := s.wallet.WithTx(tx).Debit(ctx, wallet.DebitInput{
			OwnerID:        order.BuyerID,
			Amount:         order.TotalCents,
			Type:           enums.TransactionTypePurchase,
			RelatedOrderID: &orderID,
			IdempotencyKey: PaymentKey(order.ID),
		})
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance) {
				return false, err, nil
			}
			return false, nil, err
		}
		if s.metrics != nil {
			s.metrics.IncAuthorized(order.PaymentMethod.String())
		}
		return true, nil, nil

	case enums.PaymentMethodCard, enums.PaymentMethodUPI:
		result, err := s.adapter.Authorize(ctx, payments.AuthorizeInput{
			AmountCents: order.TotalCents,
			Method:      order.PaymentMethod,
			Reference:   PaymentKey(order.ID),
		})
		if err != nil {
			return false, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authorize payment")
		}
		switch result.Outcome {
		case payments.OutcomeAuthorized:
			if s.metrics != nil {
				s.metrics.IncAuthorized(order.PaymentMethod.String())
			}
			return true, nil, nil
		case payments.OutcomeDeclined:
			if s.metrics != nil {
				s.metrics.IncDeclined(order.PaymentMethod.String())
			}
			return false, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was declined").
				WithDetails(map[string]any{"method": order.PaymentMethod}), nil
		case payments.OutcomePending:
			return false, pkgerrors.New(pkgerrors.CodeDependency, "payment pending at external rail, retry"), nil
		default:
			return false, nil, pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("unknown authorize outcome %q", result.Outcome))
		}

	case enums.PaymentMethodCOD:
		return false, nil, nil

	default:
		return false, nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unsupported payment method %q", order.PaymentMethod))
	}
}

// RetryPayment re-attempts capture for an order stuck in pending_payment.
// The purchase idempotency key is derived from the order, so a retry that
// races a previously half-finished attempt replays rather than double-debits.
func (s *service) RetryPayment(ctx context.Context, orderID uuid.UUID, actor Actor, version int64) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.ActorRoleAdmin && actor.ID != order.BuyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may retry payment")
	}
	if order.Version != version {
		return nil, staleOrder(order.ID)
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}
	if order.PaymentMethod == enums.PaymentMethodCOD {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cash on delivery orders have no payment to retry")
	}

	var payErr error
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		paid, pErr, infraErr := s.capturePayment(ctx, tx, order)
		if infraErr != nil {
			return infraErr
		}
		if !paid {
			payErr = pErr
			return nil
		}
		now := time.Now().UTC()
		moved, updErr := s.repo.WithTx(tx).UpdateGuarded(ctx, order.ID, order.Version, map[string]any{
			"status":         enums.OrderStatusConfirmed,
			"payment_status": enums.PaymentStatusPaid,
			"confirmed_at":   now,
		})
		if updErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "confirm order")
		}
		if !moved {
			return staleOrder(order.ID)
		}
		order.Status = enums.OrderStatusConfirmed
		order.PaymentStatus = enums.PaymentStatusPaid
		order.ConfirmedAt = &now
		order.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payErr != nil {
		return nil, payErr
	}

	s.publishTransition(ctx, order, enums.OrderStatusPendingPayment, enums.OrderStatusConfirmed)
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, order) {
		// A 404 avoids leaking the existence of other users' orders.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, actor Actor, params pagination.Params) (*Page, error) {
	var (
		rows []models.Order
		err  error
	)
	switch actor.Role {
	case enums.ActorRoleSeller:
		rows, err = s.repo.ListBySeller(ctx, actor.ID, params)
	default:
		rows, err = s.repo.ListByBuyer(ctx, actor.ID, params)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page := &Page{Orders: rows}
	if len(rows) > limit {
		page.Orders = rows[:limit]
		last := page.Orders[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// AdvanceStatus moves the order one step along the shipping pipeline. The
// caller supplies the version it acted on; a mismatch means the order moved
// underneath them and the write is refused. The version guard on the update
// additionally rejects writes that raced another transition.
func (s *service) AdvanceStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, actor Actor, version int64) (*models.Order, error) {
	if target == enums.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID, actor, version)
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", target))
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanAdvanceShipping() || (actor.Role == enums.ActorRoleSeller && actor.ID != order.SellerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller may advance this order")
	}
	if order.Version != version {
		return nil, staleOrder(order.ID)
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is in a terminal state").
			WithDetails(map[string]any{"status": order.Status})
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot move from %s to %s", order.Status, target)).
			WithDetails(map[string]any{"from": order.Status, "to": target})
	}
	if target == enums.OrderStatusConfirmed && order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "order cannot be confirmed before payment")
	}

	now := time.Now().UTC()
	fields := map[string]any{"status": target}
	switch target {
	case enums.OrderStatusShipped:
		fields["shipped_at"] = now
	case enums.OrderStatusDelivered:
		fields["delivered_at"] = now
		if order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus == enums.PaymentStatusUnpaid {
			// Cash collected on handover.
			fields["payment_status"] = enums.PaymentStatusPaid
		}
	}

	from := order.Status
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		moved, updErr := s.repo.WithTx(tx).UpdateGuarded(ctx, order.ID, order.Version, fields)
		if updErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "advance order")
		}
		if !moved {
			return staleOrder(order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, updated, from, target)
	return updated, nil
}

// CancelOrder cancels a still-cancellable order, settling its money through
// the refund coordinator in the same transaction. Cancelling an already
// cancelled order is a no-op success so client retries converge.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor, version int64) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Status == enums.OrderStatusCancelled {
		return order, nil
	}
	if order.Version != version {
		return nil, staleOrder(order.ID)
	}
	if !order.Status.IsCancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeNotCancellable,
			fmt.Sprintf("order in status %s can no longer be cancelled", order.Status)).
			WithDetails(map[string]any{"status": order.Status})
	}

	from := order.Status
	err = s.cancelTx(ctx, order)
	if err != nil {
		return nil, err
	}

	updated, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publishTransition(ctx, updated, from, enums.OrderStatusCancelled)
	if s.logg != nil {
		lctx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(lctx, "order cancelled")
	}
	return updated, nil
}

// cancelTx runs refund plus cancellation atomically: if the version guard
// loses a race the refund credit rolls back with it.
func (s *service) cancelTx(ctx context.Context, order *models.Order) error {
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		paymentStatus, refundErr := s.refunds.Refund(ctx, tx, order)
		if refundErr != nil {
			return refundErr
		}
		now := time.Now().UTC()
		moved, updErr := s.repo.WithTx(tx).UpdateGuarded(ctx, order.ID, order.Version, map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": paymentStatus,
			"cancelled_at":   now,
		})
		if updErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, updErr, "cancel order")
		}
		if !moved {
			return staleOrder(order.ID)
		}
		return nil
	})
}

func (s *service) ExpirePending(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	cutoff := time.Now().Add(-ttl)
	stale, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}

	cancelled := 0
	for i := range stale {
		order := stale[i]
		if cancelErr := s.cancelTx(ctx, &order); cancelErr != nil {
			// A version conflict means someone paid or cancelled first; skip.
			if pkgerrors.HasCode(cancelErr, pkgerrors.CodeVersionConflict) {
				continue
			}
			return cancelled, cancelErr
		}
		cancelled++
		s.publishTransition(ctx, &order, enums.OrderStatusPendingPayment, enums.OrderStatusCancelled)
	}
	return cancelled, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) publishTransition(ctx context.Context, order *models.Order, from, to enums.OrderStatus) {
	if s.events == nil {
		return
	}
	s.events.OrderStatusChanged(ctx, notifications.OrderStatusChanged{
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		SellerID:   order.SellerID,
		FromStatus: from,
		ToStatus:   to,
	})
}

func canView(actor Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleSeller:
		return actor.ID == order.SellerID
	default:
		return actor.ID == order.BuyerID
	}
}

func staleOrder(orderID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeVersionConflict, "order changed concurrently, refetch and retry").
		WithDetails(map[string]any{"order_id": orderID})
}

// buildOrder assembles the order aggregate with item price snapshots. All
// items must belong to one seller; mixed baskets split client-side.
func buildOrder(input PlaceOrderInput, snapshots map[uuid.UUID]catalog.Snapshot) (*models.Order, error) {
	var (
		sellerID uuid.UUID
		total    int64
	)
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		snap := snapshots[line.ProductID]
		if sellerID == uuid.Nil {
			sellerID = snap.SellerID
		} else if sellerID != snap.SellerID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must belong to the same seller")
		}
		lineTotal := snap.PriceCents * int64(line.Quantity)
		total += lineTotal
		items = append(items, models.OrderItem{
			ProductID:      snap.ProductID,
			Name:           snap.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: snap.PriceCents,
			TotalCents:     lineTotal,
		})
	}

	return &models.Order{
		ID:              uuid.New(),
		BuyerID:         input.BuyerID,
		SellerID:        sellerID,
		Status:          enums.OrderStatusPendingPayment,
		PaymentStatus:   enums.PaymentStatusUnpaid,
		PaymentMethod:   input.PaymentMethod,
		TotalCents:      total,
		ShippingAddress: &input.ShippingAddress,
		Version:         1,
		Items:           items,
	}, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in basket").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		seen[item.ProductID] = struct{}{}
	}
	if input.ShippingAddress.Line1 == "" || input.ShippingAddress.City == "" ||
		input.ShippingAddress.PostalCode == "" || input.ShippingAddress.Country == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}
	return nil
}
