package models

import "time"

// CartItem is a single line in a shopper's cart. Carts live in Redis only;
// the price is carried so order items can snapshot it at checkout.
type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

// Address is a shipping address owned by a shopper
type Address struct {
	ID         string    `db:"id" json:"id"`
	OwnerKey   string    `db:"owner_key" json:"owner_key"`
	Street     string    `db:"street" json:"street"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	Country    string    `db:"country" json:"country"`
	PostalCode string    `db:"postal_code" json:"postal_code,omitempty"`
	Phone      string    `db:"phone" json:"phone"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Order represents a customer order
type Order struct {
	ID          string    `db:"id" json:"id"`
	OrderNumber string    `db:"order_number" json:"order_number"`
	OwnerKey    string    `db:"owner_key" json:"owner_key"`
	AddressID   string    `db:"address_id" json:"address_id"`
	TotalPrice  int64     `db:"total_price" json:"total_price"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents items in an order; UnitPrice is the cart price at
// purchase time and is never recomputed from the catalog.
type OrderItem struct {
	ID        string `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID string `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
}

// Payment is the 1:1 payment record for an order. Reference is the
// gateway-issued identifier and the sole join key used by the callback.
type Payment struct {
	ID              string    `db:"id" json:"id"`
	OrderID         string    `db:"order_id" json:"order_id"`
	Reference       string    `db:"reference" json:"reference"`
	AccessCode      string    `db:"access_code" json:"access_code,omitempty"`
	Amount          int64     `db:"amount" json:"amount"`
	Currency        string    `db:"currency" json:"currency"`
	Status          string    `db:"status" json:"status"`
	GatewayResponse string    `db:"gateway_response" json:"gateway_response,omitempty"`
	Channel         string    `db:"channel" json:"channel,omitempty"`
	TransactionID   string    `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Order statuses. Transitions only move forward; any backward change is an
// explicit administrative action.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// Payment statuses. SUCCESSFUL and FAILED are terminal.
const (
	PaymentStatusPending    = "PENDING"
	PaymentStatusSuccessful = "SUCCESSFUL"
	PaymentStatusFailed     = "FAILED"
)

// OrderStatuses lists every valid order status for admin validation
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Identity is the caller resolved by the fronting auth layer. Key is the cart
// owner key: the user id when authenticated, a persisted guest id otherwise.
type Identity struct {
	Key     string
	UserID  string
	Email   string
	IsAdmin bool
}
