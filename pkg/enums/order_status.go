package enums

import "fmt"

// OrderStatus tracks the lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// forwardTransitions is the single source of truth for the order state
// machine. Cancellation is handled separately via IsCancellable.
var forwardTransitions = map[OrderStatus]OrderStatus{
	OrderStatusPendingPayment: OrderStatusConfirmed,
	OrderStatusConfirmed:      OrderStatusProcessing,
	OrderStatusProcessing:     OrderStatusShipped,
	OrderStatusShipped:        OrderStatusOutForDelivery,
	OrderStatusOutForDelivery: OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is accepted from o.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

// IsCancellable reports whether an order in this status may still be cancelled.
func (o OrderStatus) IsCancellable() bool {
	switch o {
	case OrderStatusPendingPayment, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}

// CanTransitionTo reports whether target is a legal move from o. Forward
// transitions are monotonic; only the immediate next state is accepted.
func (o OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if target == OrderStatusCancelled {
		return o.IsCancellable()
	}
	next, ok := forwardTransitions[o]
	return ok && next == target
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
