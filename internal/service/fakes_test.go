package service

import (
	"context"
	"fmt"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
)

// fakeStore is an in-memory OrderStore. CreateCheckout either commits the
// whole checkout or, when failCreate is set, stores nothing at all,
// mirroring the real store's single-transaction guarantee.
type fakeStore struct {
	addresses map[string]*models.Address
	orders    map[string]*models.Order
	payments  map[string]*models.Payment
	items     map[string][]models.OrderItem

	failCreate  error
	settleCalls int
	nextID      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		addresses: make(map[string]*models.Address),
		orders:    make(map[string]*models.Order),
		payments:  make(map[string]*models.Payment),
		items:     make(map[string][]models.OrderItem),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) GetAddressForOwner(ctx context.Context, addressID, ownerKey string) (*models.Address, error) {
	addr, ok := f.addresses[addressID]
	if !ok || addr.OwnerKey != ownerKey {
		return nil, models.ErrInvalidAddress
	}
	return addr, nil
}

func (f *fakeStore) CreateCheckout(ctx context.Context, co *store.Checkout) error {
	if f.failCreate != nil {
		return f.failCreate
	}

	if co.NewAddress != nil {
		co.NewAddress.ID = f.id("addr")
		f.addresses[co.NewAddress.ID] = co.NewAddress
		co.Order.AddressID = co.NewAddress.ID
	}

	co.Order.ID = f.id("order")
	f.orders[co.Order.ID] = co.Order

	for i := range co.Items {
		co.Items[i].ID = f.id("item")
		co.Items[i].OrderID = co.Order.ID
	}
	f.items[co.Order.ID] = co.Items

	co.Payment.ID = f.id("pay")
	co.Payment.OrderID = co.Order.ID
	f.payments[co.Payment.Reference] = co.Payment

	return nil
}

func (f *fakeStore) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	payment, ok := f.payments[reference]
	if !ok {
		return nil, models.ErrPaymentNotFound
	}
	cp := *payment
	return &cp, nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeStore) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) SettlePayment(ctx context.Context, reference, gatewayResponse, channel, transactionID string) (bool, error) {
	f.settleCalls++

	payment, ok := f.payments[reference]
	if !ok || payment.Status != models.PaymentStatusPending {
		return false, nil
	}

	payment.Status = models.PaymentStatusSuccessful
	payment.GatewayResponse = gatewayResponse
	payment.Channel = channel
	payment.TransactionID = transactionID

	if order, ok := f.orders[payment.OrderID]; ok && order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusProcessing
	}
	return true, nil
}

// fakeGateway scripts Initialize and Verify responses
type fakeGateway struct {
	initResult *gateway.InitResult
	initErr    error
	initCalls  int

	verifyResult *gateway.VerifyResult
	verifyErr    error
	verifyCalls  int
}

func (f *fakeGateway) Initialize(ctx context.Context, orderNumber, ownerKey, email string, amountMajor int64) (*gateway.InitResult, error) {
	f.initCalls++
	if f.initErr != nil {
		return nil, f.initErr
	}
	return f.initResult, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyResult, nil
}

// fakeCarts is an in-memory CartStore
type fakeCarts struct {
	carts      map[string][]models.CartItem
	clearCalls int
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: make(map[string][]models.CartItem)}
}

func (f *fakeCarts) Get(ctx context.Context, ownerKey string) ([]models.CartItem, error) {
	items, ok := f.carts[ownerKey]
	if !ok {
		return []models.CartItem{}, nil
	}
	return items, nil
}

func (f *fakeCarts) Set(ctx context.Context, ownerKey string, items []models.CartItem) error {
	f.carts[ownerKey] = items
	return nil
}

func (f *fakeCarts) Clear(ctx context.Context, ownerKey string) error {
	f.clearCalls++
	delete(f.carts, ownerKey)
	return nil
}

// fakePublisher records published events
type fakePublisher struct {
	created []*models.OrderCreatedEvent
	settled []*models.PaymentSettledEvent
	failed  []*models.PaymentFailedEvent
}

func (f *fakePublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	f.created = append(f.created, event)
	return nil
}

func (f *fakePublisher) PublishPaymentSettled(ctx context.Context, event *models.PaymentSettledEvent) error {
	f.settled = append(f.settled, event)
	return nil
}

func (f *fakePublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	f.failed = append(f.failed, event)
	return nil
}
