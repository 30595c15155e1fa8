package broker

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
)

// EventPublisher publishes checkout domain events, keyed by order number so
// a given order's events land in one partition.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderNumber), event)
}

// PublishPaymentSettled publishes PaymentSettled event
func (ep *EventPublisher) PublishPaymentSettled(ctx context.Context, event *models.PaymentSettledEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderNumber), event)
}

// PublishPaymentFailed publishes PaymentFailed event
func (ep *EventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	key := orderKey(event.OrderNumber)
	if event.OrderNumber == "" {
		key = fmt.Sprintf("reference-%s", event.Reference)
	}
	return ep.producer.PublishEvent(ctx, key, event)
}

func orderKey(orderNumber string) string {
	return fmt.Sprintf("order-%s", orderNumber)
}
