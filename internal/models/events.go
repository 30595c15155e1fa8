package models

import "time"

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypePaymentSettled = "PAYMENT_SETTLED"
	EventTypePaymentFailed  = "PAYMENT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when checkout persists an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	OwnerKey    string          `json:"owner_key"`
	TotalPrice  int64           `json:"total_price"`
	Reference   string          `json:"reference"`
	Items       []OrderItemData `json:"items"`
}

// PaymentSettledEvent published when reconciliation confirms a payment
type PaymentSettledEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	Reference     string `json:"reference"`
	Amount        int64  `json:"amount"`
	Channel       string `json:"channel"`
	TransactionID string `json:"transaction_id"`
}

// PaymentFailedEvent published when the gateway reports a failed attempt
type PaymentFailedEvent struct {
	BaseEvent
	OrderNumber string `json:"order_number,omitempty"`
	Reference   string `json:"reference"`
	Reason      string `json:"reason"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
