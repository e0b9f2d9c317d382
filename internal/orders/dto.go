package orders

import (
	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/pkg/db/models"
	"github.com/pawmart/pawmart-backend/pkg/enums"
	"github.com/pawmart/pawmart-backend/pkg/types"
)

// Actor identifies who is performing an order operation. Authentication is
// upstream; this is the already-verified identity.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// ItemInput is one basket line at placement time.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// PlaceOrderInput captures a new order request.
type PlaceOrderInput struct {
	BuyerID         uuid.UUID
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	Items           []ItemInput
}

// PlaceOrderResult reports the placed order together with the payment
// outcome. A failed capture still yields a persisted order in
// pending_payment so the buyer can retry without rebuilding the basket.
type PlaceOrderResult struct {
	Order *models.Order
	// Paid is true when the payment was captured during placement.
	Paid bool
	// PaymentError carries the capture failure when Paid is false and the
	// method required payment up front. Nil for cash on delivery.
	PaymentError error
}

// Page is one cursor page of orders.
type Page struct {
	Orders     []models.Order
	NextCursor string
}
