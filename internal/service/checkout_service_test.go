package service

import (
	"context"
	"errors"
	"testing"

	"checkout-service/config"
	"checkout-service/internal/gateway"
	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBusiness = config.BusinessConfig{
	ShippingFee:    8000,
	TaxRatePercent: 1,
	Currency:       "NGN",
}

func newCheckoutFixture() (*CheckoutService, *fakeStore, *fakeGateway, *fakePublisher) {
	st := newFakeStore()
	gw := &fakeGateway{
		initResult: &gateway.InitResult{
			AuthorizationURL: "https://checkout.paystack.com/abc123",
			AccessCode:       "abc123",
			Reference:        "ref-1",
		},
	}
	pub := &fakePublisher{}
	svc := NewCheckoutService(st, gw, pub, testBusiness)
	return svc, st, gw, pub
}

func shopper() models.Identity {
	return models.Identity{Key: "user-7", UserID: "user-7", Email: "shopper@example.com"}
}

func newAddressInput() *CheckoutInput {
	return &CheckoutInput{
		Street:  "12 Stadium Road",
		City:    "Lagos",
		State:   "Lagos",
		Country: "Nigeria",
		Phone:   "08012345678",
	}
}

func TestComputeTotals(t *testing.T) {
	svc, _, _, _ := newCheckoutFixture()

	items := []models.CartItem{
		{ProductID: "p1", Price: 7500, Quantity: 1},
		{ProductID: "p2", Price: 7500, Quantity: 1},
	}

	subtotal, tax, total := svc.computeTotals(items)

	assert.Equal(t, int64(15000), subtotal)
	assert.Equal(t, int64(150), tax)
	assert.Equal(t, int64(23150), total)
}

func TestCreateOrderUnauthenticated(t *testing.T) {
	svc, st, gw, _ := newCheckoutFixture()

	_, err := svc.CreateOrder(context.Background(), models.Identity{}, newAddressInput(),
		[]models.CartItem{{ProductID: "p1", Price: 100, Quantity: 1}})

	assert.True(t, errors.Is(err, models.ErrUnauthenticated))
	assert.Zero(t, gw.initCalls)
	assert.Empty(t, st.orders)
}

func TestCreateOrderEmptyCart(t *testing.T) {
	svc, st, _, _ := newCheckoutFixture()

	_, err := svc.CreateOrder(context.Background(), shopper(), newAddressInput(), nil)

	assert.True(t, errors.Is(err, models.ErrEmptyCart))
	assert.Empty(t, st.orders)
}

func TestCreateOrderValidationDetail(t *testing.T) {
	svc, _, gw, _ := newCheckoutFixture()

	input := &CheckoutInput{Street: "12 Stadium Road", Phone: "08012345678"}

	_, err := svc.CreateOrder(context.Background(), shopper(), input,
		[]models.CartItem{{ProductID: "p1", Price: 100, Quantity: 1}})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "city")
	assert.Contains(t, verr.Fields, "state")
	assert.Contains(t, verr.Fields, "country")
	assert.NotContains(t, verr.Fields, "street")
	assert.Zero(t, gw.initCalls)
}

func TestCreateOrderExistingAddressMustSelectOne(t *testing.T) {
	svc, _, _, _ := newCheckoutFixture()

	_, err := svc.CreateOrder(context.Background(), shopper(),
		&CheckoutInput{UseExistingAddress: true},
		[]models.CartItem{{ProductID: "p1", Price: 100, Quantity: 1}})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "selected_address_id")
}

func TestCreateOrderForeignAddressRejected(t *testing.T) {
	svc, st, gw, _ := newCheckoutFixture()

	st.addresses["addr-9"] = &models.Address{ID: "addr-9", OwnerKey: "someone-else"}

	_, err := svc.CreateOrder(context.Background(), shopper(),
		&CheckoutInput{UseExistingAddress: true, SelectedAddressID: "addr-9"},
		[]models.CartItem{{ProductID: "p1", Price: 100, Quantity: 1}})

	assert.True(t, errors.Is(err, models.ErrInvalidAddress))
	assert.Zero(t, gw.initCalls)
	assert.Empty(t, st.orders)
	assert.Empty(t, st.payments)
}

func TestCreateOrderGatewayFailureCommitsNothing(t *testing.T) {
	svc, st, gw, _ := newCheckoutFixture()
	gw.initErr = models.ErrGatewayUnreachable

	_, err := svc.CreateOrder(context.Background(), shopper(), newAddressInput(),
		[]models.CartItem{{ProductID: "p1", Price: 5000, Quantity: 2}})

	assert.True(t, errors.Is(err, models.ErrPaymentInit))
	assert.Empty(t, st.orders)
	assert.Empty(t, st.payments)
	// The new address must not be left behind either
	assert.Empty(t, st.addresses)
}

func TestCreateOrderPersistenceFailureCommitsNothing(t *testing.T) {
	svc, st, _, _ := newCheckoutFixture()
	st.failCreate = errors.New("connection reset")

	_, err := svc.CreateOrder(context.Background(), shopper(), newAddressInput(),
		[]models.CartItem{{ProductID: "p1", Price: 5000, Quantity: 2}})

	assert.Error(t, err)
	assert.Empty(t, st.orders)
	assert.Empty(t, st.payments)
	assert.Empty(t, st.addresses)
}

func TestCreateOrderSuccess(t *testing.T) {
	svc, st, _, pub := newCheckoutFixture()

	cartItems := []models.CartItem{
		{ProductID: "prod-x", Price: 5000, Quantity: 2},
	}

	redirectURL, err := svc.CreateOrder(context.Background(), shopper(), newAddressInput(), cartItems)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", redirectURL)

	require.Len(t, st.orders, 1)
	var order *models.Order
	for _, o := range st.orders {
		order = o
	}

	// subtotal 10000 + shipping 8000 + 1% tax 100
	assert.Equal(t, int64(18100), order.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "user-7", order.OwnerKey)
	assert.Len(t, order.OrderNumber, 8)

	payment, ok := st.payments["ref-1"]
	require.True(t, ok)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, order.ID, payment.OrderID)
	assert.Equal(t, int64(18100), payment.Amount)
	assert.Equal(t, "NGN", payment.Currency)
	assert.Equal(t, "abc123", payment.AccessCode)
	assert.NotEqual(t, order.OrderNumber, payment.Reference)

	items := st.items[order.ID]
	require.Len(t, items, 1)
	assert.Equal(t, "prod-x", items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(5000), items[0].UnitPrice)

	// New address committed with the order, marked by ownership
	require.Len(t, st.addresses, 1)
	assert.Equal(t, st.addresses[order.AddressID].OwnerKey, "user-7")

	require.Len(t, pub.created, 1)
	assert.Equal(t, order.OrderNumber, pub.created[0].OrderNumber)
}

func TestCreateOrderReusesOwnedAddress(t *testing.T) {
	svc, st, _, _ := newCheckoutFixture()

	st.addresses["addr-1"] = &models.Address{ID: "addr-1", OwnerKey: "user-7", Street: "12 Stadium Road"}

	_, err := svc.CreateOrder(context.Background(), shopper(),
		&CheckoutInput{UseExistingAddress: true, SelectedAddressID: "addr-1"},
		[]models.CartItem{{ProductID: "p1", Price: 100, Quantity: 1}})
	require.NoError(t, err)

	require.Len(t, st.orders, 1)
	for _, o := range st.orders {
		assert.Equal(t, "addr-1", o.AddressID)
	}
	// No second address row
	assert.Len(t, st.addresses, 1)
}
