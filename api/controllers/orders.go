package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/api/middleware"
	"github.com/pawmart/pawmart-backend/api/responses"
	"github.com/pawmart/pawmart-backend/api/validators"
	"github.com/pawmart/pawmart-backend/internal/ledger"
	ordersvc "github.com/pawmart/pawmart-backend/internal/orders"
	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	pkgerrors "github.com/pawmart/pawmart-backend/pkg/errors"
	"github.com/pawmart/pawmart-backend/pkg/logger"
	"github.com/pawmart/pawmart-backend/pkg/pagination"
	"github.com/pawmart/pawmart-backend/pkg/types"
)

// PlaceOrder handles POST /api/v1/orders.
func PlaceOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := placeOrderResponse{
			Order: newOrderResponse(result.Order),
			Paid:  result.Paid,
		}
		if result.PaymentError != nil {
			if typed := pkgerrors.As(result.PaymentError); typed != nil {
				resp.PaymentFailure = &types.APIError{
					Code:    string(typed.Code()),
					Message: typed.Message(),
				}
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// GetOrder handles GET /api/v1/orders/{orderID}.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ListOrders handles GET /api/v1/orders.
func ListOrders(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{Cursor: r.URL.Query().Get("cursor")}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, parseErr := strconv.Atoi(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "limit must be an integer"))
				return
			}
			params.Limit = limit
		}

		page, err := svc.ListOrders(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(page.Orders))
		for i := range page.Orders {
			items = append(items, newOrderResponse(&page.Orders[i]))
		}
		responses.WriteSuccess(w, orderListResponse{Orders: items, NextCursor: page.NextCursor})
	}
}

// AdvanceOrderStatus handles POST /api/v1/orders/{orderID}/status.
func AdvanceOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload advanceStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.AdvanceStatus(r.Context(), orderID, target, actor, payload.Version)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// CancelOrder handles POST /api/v1/orders/{orderID}/cancel.
func CancelOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload versionedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelOrder(r.Context(), orderID, actor, payload.Version)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// RetryOrderPayment handles POST /api/v1/orders/{orderID}/retry-payment.
func RetryOrderPayment(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload versionedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RetryPayment(r.Context(), orderID, actor, payload.Version)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderTransactions handles GET /api/v1/orders/{orderID}/transactions. The
// order lookup doubles as the access check.
func OrderTransactions(svc ordersvc.Service, store ledger.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.GetOrder(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := store.TransactionsByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newLedgerResponse(txns))
	}
}

func actorFromRequest(r *http.Request) (ordersvc.Actor, error) {
	id := middleware.ActorIDFromContext(r.Context())
	role := middleware.ActorRoleFromContext(r.Context())
	if id == uuid.Nil || !role.IsValid() {
		return ordersvc.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "actor context missing")
	}
	return ordersvc.Actor{ID: id, Role: role}, nil
}

func orderIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderID")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

type placeOrderRequest struct {
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	ShippingAddress types.Address      `json:"shipping_address" validate:"required"`
	Items           []orderItemPayload `json:"items" validate:"required,min=1,dive"`
}

type orderItemPayload struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

func (p placeOrderRequest) toInput(buyerID uuid.UUID) (ordersvc.PlaceOrderInput, error) {
	method, err := enums.ParsePaymentMethod(p.PaymentMethod)
	if err != nil {
		return ordersvc.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	items := make([]ordersvc.ItemInput, len(p.Items))
	for i, item := range p.Items {
		items[i] = ordersvc.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return ordersvc.PlaceOrderInput{
		BuyerID:         buyerID,
		PaymentMethod:   method,
		ShippingAddress: p.ShippingAddress,
		Items:           items,
	}, nil
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
	// Version is the order version the caller last read; stale writes are
	// rejected with a version conflict.
	Version int64 `json:"version" validate:"required,gt=0"`
}

// versionedRequest carries only the optimistic-concurrency version for
// mutations whose intent is fully described by the route.
type versionedRequest struct {
	Version int64 `json:"version" validate:"required,gt=0"`
}

type placeOrderResponse struct {
	Order          orderResponse   `json:"order"`
	Paid           bool            `json:"paid"`
	PaymentFailure *types.APIError `json:"payment_failure,omitempty"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	BuyerID         uuid.UUID           `json:"buyer_id"`
	SellerID        uuid.UUID           `json:"seller_id"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	PaymentMethod   string              `json:"payment_method"`
	TotalCents      int64               `json:"total_cents"`
	ShippingAddress *types.Address      `json:"shipping_address,omitempty"`
	Version         int64               `json:"version"`
	Items           []orderItemResponse `json:"items"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	TotalCents     int64     `json:"total_cents"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return orderResponse{
		ID:              order.ID,
		BuyerID:         order.BuyerID,
		SellerID:        order.SellerID,
		Status:          order.Status.String(),
		PaymentStatus:   order.PaymentStatus.String(),
		PaymentMethod:   order.PaymentMethod.String(),
		TotalCents:      order.TotalCents,
		ShippingAddress: order.ShippingAddress,
		Version:         order.Version,
		Items:           items,
		ConfirmedAt:     order.ConfirmedAt,
		ShippedAt:       order.ShippedAt,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
	}
}
