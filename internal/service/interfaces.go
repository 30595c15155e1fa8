package service

import (
	"context"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
)

// Gateway is the payment-provider surface the pipeline needs. Satisfied by
// gateway.PaystackClient; test doubles stand in for it.
type Gateway interface {
	Initialize(ctx context.Context, orderNumber, ownerKey, email string, amountMajor int64) (*gateway.InitResult, error)
	Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error)
}

// OrderStore is the relational persistence surface. Satisfied by store.Store.
type OrderStore interface {
	GetAddressForOwner(ctx context.Context, addressID, ownerKey string) (*models.Address, error)
	CreateCheckout(ctx context.Context, co *store.Checkout) error
	GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	SettlePayment(ctx context.Context, reference, gatewayResponse, channel, transactionID string) (bool, error)
}

// CartStore is the cart persistence surface. Satisfied by cart.Store.
type CartStore interface {
	Get(ctx context.Context, ownerKey string) ([]models.CartItem, error)
	Set(ctx context.Context, ownerKey string, items []models.CartItem) error
	Clear(ctx context.Context, ownerKey string) error
}

// EventPublisher emits domain events for downstream consumers. Publishing is
// best effort everywhere it is used.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishPaymentSettled(ctx context.Context, event *models.PaymentSettledEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
}
