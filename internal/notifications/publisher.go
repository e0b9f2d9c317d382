package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pawmart/pawmart-backend/pkg/enums"
	"github.com/pawmart/pawmart-backend/pkg/logger"
)

const orderEventsChannel = "pawmart:events:orders"

// OrderStatusChanged is the event payload emitted after every successful
// order transition. Delivery is best effort; order flows never fail or roll
// back because a notification could not be published.
type OrderStatusChanged struct {
	OrderID    uuid.UUID         `json:"order_id"`
	BuyerID    uuid.UUID         `json:"buyer_id"`
	SellerID   uuid.UUID         `json:"seller_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type publisherBackend interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Publisher emits order events over redis pub/sub.
type Publisher struct {
	backend publisherBackend
	logg    *logger.Logger
}

// NewPublisher wires the event publisher. A nil backend disables publishing,
// which keeps tests and minimal deployments working.
func NewPublisher(backend publisherBackend, logg *logger.Logger) *Publisher {
	return &Publisher{backend: backend, logg: logg}
}

// OrderStatusChanged publishes the event, swallowing and logging failures.
func (p *Publisher) OrderStatusChanged(ctx context.Context, event OrderStatusChanged) {
	if p == nil || p.backend == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if p.logg != nil {
			p.logg.Error(ctx, "marshalling order event", err)
		}
		return
	}
	if err := p.backend.Publish(ctx, orderEventsChannel, payload); err != nil {
		if p.logg != nil {
			lctx := p.logg.WithOrderID(ctx, event.OrderID.String())
			p.logg.Warn(lctx, "order event publish failed")
		}
	}
}
