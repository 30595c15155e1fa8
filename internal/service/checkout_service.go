package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"checkout-service/config"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutService assembles orders: it validates checkout input, resolves a
// shipping address, computes totals, initializes the gateway transaction and
// persists order, items and payment as one atomic unit.
type CheckoutService struct {
	store     OrderStore
	gateway   Gateway
	publisher EventPublisher
	business  config.BusinessConfig
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(orderStore OrderStore, gw Gateway, publisher EventPublisher, business config.BusinessConfig) *CheckoutService {
	return &CheckoutService{
		store:     orderStore,
		gateway:   gw,
		publisher: publisher,
		business:  business,
		logger:    util.Named("checkout"),
	}
}

// CheckoutInput is a tagged choice: reuse an existing address or supply a
// new one.
type CheckoutInput struct {
	UseExistingAddress bool   `json:"use_existing_address"`
	SelectedAddressID  string `json:"selected_address_id,omitempty"`

	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone,omitempty"`

	// SaveAddress marks a newly supplied address as the owner's default
	SaveAddress bool `json:"save_address,omitempty"`
}

// ValidationError carries field-level detail for malformed checkout input
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid checkout input: " + strings.Join(parts, ", ")
}

func validateInput(input *CheckoutInput) *ValidationError {
	fields := make(map[string]string)

	if input.UseExistingAddress {
		if input.SelectedAddressID == "" {
			fields["selected_address_id"] = "an address must be selected"
		}
	} else {
		required := map[string]string{
			"street":  input.Street,
			"city":    input.City,
			"state":   input.State,
			"country": input.Country,
			"phone":   input.Phone,
		}
		for name, val := range required {
			if strings.TrimSpace(val) == "" {
				fields[name] = "is required"
			}
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// CreateOrder runs the whole order assembly and returns the gateway's
// hosted-payment URL. The cart is not cleared here; only a reconciled
// payment clears it.
func (s *CheckoutService) CreateOrder(ctx context.Context, identity models.Identity, input *CheckoutInput, cartItems []models.CartItem) (string, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateOrder")
	defer span.End()

	if identity.Key == "" || identity.Email == "" {
		util.CheckoutsFailedTotal.WithLabelValues("unauthenticated").Inc()
		return "", models.ErrUnauthenticated
	}
	if len(cartItems) == 0 {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return "", models.ErrEmptyCart
	}
	if verr := validateInput(input); verr != nil {
		util.CheckoutsFailedTotal.WithLabelValues("invalid_input").Inc()
		return "", verr
	}

	// Resolve the shipping address before touching the gateway. A reused
	// address must belong to the caller; a new one is only built here and
	// committed inside the checkout transaction below.
	var addressID string
	var newAddress *models.Address
	if input.UseExistingAddress {
		addr, err := s.store.GetAddressForOwner(ctx, input.SelectedAddressID, identity.Key)
		if err != nil {
			util.CheckoutsFailedTotal.WithLabelValues("invalid_address").Inc()
			return "", err
		}
		addressID = addr.ID
	} else {
		newAddress = &models.Address{
			OwnerKey:   identity.Key,
			Street:     input.Street,
			City:       input.City,
			State:      input.State,
			Country:    input.Country,
			PostalCode: input.PostalCode,
			Phone:      input.Phone,
			IsDefault:  input.SaveAddress,
		}
	}

	subtotal, tax, total := s.computeTotals(cartItems)
	orderNumber := util.GenerateOrderNumber()

	init, err := s.gateway.Initialize(ctx, orderNumber, identity.Key, identity.Email, total)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("gateway").Inc()
		s.logger.Error("Payment initialization failed",
			zap.String("order_number", orderNumber),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrPaymentInit, err)
	}

	items := make([]models.OrderItem, len(cartItems))
	for i, ci := range cartItems {
		items[i] = models.OrderItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			UnitPrice: ci.Price,
		}
	}

	co := &store.Checkout{
		NewAddress: newAddress,
		Order: &models.Order{
			OrderNumber: orderNumber,
			OwnerKey:    identity.Key,
			AddressID:   addressID,
			TotalPrice:  total,
			Status:      models.OrderStatusPending,
		},
		Items: items,
		Payment: &models.Payment{
			Reference:  init.Reference,
			AccessCode: init.AccessCode,
			Amount:     total,
			Currency:   s.business.Currency,
			Status:     models.PaymentStatusPending,
		},
	}

	if err := s.store.CreateCheckout(ctx, co); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("persistence").Inc()
		return "", fmt.Errorf("failed to persist checkout: %w", err)
	}

	util.CheckoutsTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", co.Order.ID),
		zap.String("order_number", orderNumber),
		zap.String("reference", init.Reference),
		zap.Int64("subtotal", subtotal),
		zap.Int64("tax", tax),
		zap.Int64("total", total))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     co.Order.ID,
		OrderNumber: orderNumber,
		OwnerKey:    identity.Key,
		TotalPrice:  total,
		Reference:   init.Reference,
		Items:       toEventItems(items),
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return init.AuthorizationURL, nil
}

// computeTotals prices the cart: flat shipping fee, flat percentage tax on
// the item subtotal, both frozen at order-creation time.
func (s *CheckoutService) computeTotals(items []models.CartItem) (subtotal, tax, total int64) {
	for _, item := range items {
		subtotal += item.Price * int64(item.Quantity)
	}
	tax = subtotal * s.business.TaxRatePercent / 100
	total = subtotal + s.business.ShippingFee + tax
	return subtotal, tax, total
}

func toEventItems(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, len(items))
	for i, item := range items {
		out[i] = models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return out
}

// GetOrder retrieves an order with its items, scoped to the owner
func (s *CheckoutService) GetOrder(ctx context.Context, identity models.Identity, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.OwnerKey != identity.Key && !identity.IsAdmin {
		return nil, nil, models.ErrOrderNotFound
	}

	items, err := s.store.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}
