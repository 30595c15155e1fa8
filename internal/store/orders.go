package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"
)

// Checkout is everything one order assembly writes. The rows are committed
// together or not at all; NewAddress is nil when an existing address is
// reused.
type Checkout struct {
	NewAddress *models.Address
	Order      *models.Order
	Items      []models.OrderItem
	Payment    *models.Payment
}

// CreateCheckout persists a checkout as a single transaction: the new
// address (if any), the order, its items with snapshotted prices, and the
// pending payment row carrying the gateway reference.
func (s *Store) CreateCheckout(ctx context.Context, co *Checkout) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if co.NewAddress != nil {
		query := `
			INSERT INTO addresses (owner_key, street, city, state, country, postal_code, phone, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at`

		if err := tx.GetContext(ctx, co.NewAddress, query,
			co.NewAddress.OwnerKey, co.NewAddress.Street, co.NewAddress.City,
			co.NewAddress.State, co.NewAddress.Country, co.NewAddress.PostalCode,
			co.NewAddress.Phone, co.NewAddress.IsDefault); err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		co.Order.AddressID = co.NewAddress.ID
	}

	orderQuery := `
		INSERT INTO orders (order_number, owner_key, address_id, total_price, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	if err := tx.GetContext(ctx, co.Order, orderQuery,
		co.Order.OrderNumber, co.Order.OwnerKey, co.Order.AddressID,
		co.Order.TotalPrice, co.Order.Status); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range co.Items {
		co.Items[i].OrderID = co.Order.ID
		if err := tx.GetContext(ctx, &co.Items[i].ID, itemQuery,
			co.Items[i].OrderID, co.Items[i].ProductID,
			co.Items[i].Quantity, co.Items[i].UnitPrice); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	paymentQuery := `
		INSERT INTO payments (order_id, reference, access_code, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	co.Payment.OrderID = co.Order.ID
	if err := tx.GetContext(ctx, co.Payment, paymentQuery,
		co.Payment.OrderID, co.Payment.Reference, co.Payment.AccessCode,
		co.Payment.Amount, co.Payment.Currency, co.Payment.Status); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByOwner retrieves orders for an owner, newest first
func (s *Store) GetOrdersByOwner(ctx context.Context, ownerKey string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE owner_key = $1 ORDER BY created_at DESC", ownerKey)
	return orders, err
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// GetPaymentByReference retrieves a payment by its gateway reference
func (s *Store) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE reference = $1", reference)
	if err == sql.ErrNoRows {
		return nil, models.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// SettlePayment applies the terminal payment transition and the order's move
// to PROCESSING in one transaction. The payment update only matches rows
// still PENDING, so a replayed callback finds zero rows and reports
// applied=false without touching anything.
func (s *Store) SettlePayment(ctx context.Context, reference, gatewayResponse, channel, transactionID string) (applied bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var orderID string
	err = tx.GetContext(ctx, &orderID, `
		UPDATE payments
		SET status = $2, gateway_response = $3, channel = $4, transaction_id = $5, updated_at = NOW()
		WHERE reference = $1 AND status = $6
		RETURNING order_id`,
		reference, models.PaymentStatusSuccessful, gatewayResponse, channel,
		transactionID, models.PaymentStatusPending)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to settle payment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.OrderStatusProcessing, orderID, models.OrderStatusPending); err != nil {
		return false, fmt.Errorf("failed to advance order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateOrderStatus sets an order status directly. This is the explicit
// administrative path and deliberately skips the forward-only guard.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}
