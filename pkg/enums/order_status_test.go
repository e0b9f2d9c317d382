package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusForwardChain(t *testing.T) {
	chain := []OrderStatus{
		OrderStatusPendingPayment,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, chain[i].CanTransitionTo(chain[i+1]), "%s -> %s", chain[i], chain[i+1])
	}

	// Only the immediate next state is legal; skipping and reversing are not.
	assert.False(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusShipped))
	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusConfirmed))
	assert.False(t, OrderStatusPendingPayment.CanTransitionTo(OrderStatusDelivered))
}

func TestOrderStatusTerminalStates(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())

	for _, status := range []OrderStatus{
		OrderStatusPendingPayment,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusOutForDelivery,
	} {
		assert.False(t, status.IsTerminal(), "%s", status)
	}

	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusConfirmed))
}

func TestOrderStatusCancellable(t *testing.T) {
	cancellable := map[OrderStatus]bool{
		OrderStatusPendingPayment: true,
		OrderStatusConfirmed:      true,
		OrderStatusProcessing:     true,
		OrderStatusShipped:        false,
		OrderStatusOutForDelivery: false,
		OrderStatusDelivered:      false,
		OrderStatusCancelled:      false,
	}
	for status, want := range cancellable {
		assert.Equal(t, want, status.IsCancellable(), "%s", status)
		assert.Equal(t, want, status.CanTransitionTo(OrderStatusCancelled), "%s -> cancelled", status)
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusOutForDelivery, status)

	_, err = ParseOrderStatus("lost")
	require.Error(t, err)
}
