package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/pricing"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCarts struct {
	cart       *models.Cart
	getErr     error
	clearCalls int
}

func (m *mockCarts) Get(context.Context, string) (*models.Cart, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.cart, nil
}

func (m *mockCarts) Clear(context.Context, string) error {
	m.clearCalls++
	return nil
}

type mockOrders struct {
	created []models.Order
	err     error
}

func (m *mockOrders) Create(_ context.Context, order *models.Order) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.created = append(m.created, *order)
	return order.ID, nil
}

type mockGateway struct {
	link  *payment.Link
	err   error
	calls int
}

func (m *mockGateway) CreateLink(context.Context, int64, string, string, payment.Customer) (*payment.Link, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.link, nil
}

type mockKeys struct {
	mu      sync.Mutex
	claimed map[string]bool
	stash   map[string][]byte
}

func newMockKeys() *mockKeys {
	return &mockKeys{claimed: make(map[string]bool), stash: make(map[string][]byte)}
}

func (m *mockKeys) ClaimKey(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *mockKeys) ReleaseKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, key)
	return nil
}

func (m *mockKeys) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stash[key] = data
	return nil
}

func (m *mockKeys) GetJSON(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.stash[key]
	if !ok {
		// Same sentinel the redis keystore returns for a missing key.
		return repository.ErrNotFound
	}
	return json.Unmarshal(data, dest)
}

func (m *mockKeys) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.stash, k)
	}
	return nil
}

type mockNotifier struct {
	notified []*models.Order
}

func (m *mockNotifier) Notify(order *models.Order) {
	m.notified = append(m.notified, order)
}

type mockAuditor struct {
	entries chan *repository.AuditLog
}

func newMockAuditor() *mockAuditor {
	return &mockAuditor{entries: make(chan *repository.AuditLog, 1)}
}

func (m *mockAuditor) CreateAuditLog(_ context.Context, entry *repository.AuditLog) error {
	m.entries <- entry
	return nil
}

type fixture struct {
	svc      *Service
	carts    *mockCarts
	orders   *mockOrders
	gateway  *mockGateway
	keys     *mockKeys
	notifier *mockNotifier
	calc     *pricing.Calculator
}

func newFixture(cartItems []models.CartItem) *fixture {
	calc := pricing.NewCalculator(&config.PricingConfig{
		PromoProductID:  "prod_1",
		PromoOverride:   1.00,
		FlatShippingFee: 40.00,
	})
	f := &fixture{
		carts:    &mockCarts{cart: &models.Cart{UserID: "user-1", Items: cartItems}},
		orders:   &mockOrders{},
		gateway:  &mockGateway{link: &payment.Link{ID: "plink_1", ShortURL: "https://rzp.io/l/abc"}},
		keys:     newMockKeys(),
		notifier: &mockNotifier{},
		calc:     calc,
	}
	f.svc = NewService(f.carts, f.orders, f.gateway, f.keys, f.notifier, nil, calc, "INR", zap.NewNop())
	return f
}

func codRequest() Request {
	return Request{Shipping: shippingFixture(), PaymentMethod: models.PaymentMethodCOD}
}

func TestPlaceOrder_CODPersistsImmediately(t *testing.T) {
	f := newFixture([]models.CartItem{
		{ProductID: "prod_2", Name: "Bhindi Treat Mini", Price: 55.00, Quantity: 1},
	})

	result, err := f.svc.PlaceOrder(context.Background(), "user-1", codRequest())
	require.NoError(t, err)

	require.NotNil(t, result.Order)
	assert.Nil(t, result.PaymentLink)
	assert.Equal(t, 95.00, result.Order.Amount)
	assert.Equal(t, models.PaymentStatusCOD, result.Order.PaymentStatus)
	assert.Empty(t, result.Order.PaymentID)

	require.Len(t, f.orders.created, 1)
	require.Len(t, f.notifier.notified, 1)
	assert.Equal(t, 1, f.carts.clearCalls)
	assert.Equal(t, 0, f.gateway.calls)
}

// Recomputing totals from the persisted item snapshot must reproduce the
// persisted amount.
func TestPlaceOrder_AmountMatchesRecomputedTotals(t *testing.T) {
	f := newFixture([]models.CartItem{
		{ProductID: "prod_2", Name: "Bhindi Treat Mini", Price: 55.00, Quantity: 2},
		{ProductID: "prod_3", Name: "Jackfruit Treat", Price: 99.00, Quantity: 1},
	})

	result, err := f.svc.PlaceOrder(context.Background(), "user-1", codRequest())
	require.NoError(t, err)

	items, err := result.Order.ItemList()
	require.NoError(t, err)
	assert.Equal(t, f.calc.Totals(items).Total, result.Order.Amount)
}

func TestPlaceOrder_PromoBuyNowOverride(t *testing.T) {
	f := newFixture(nil)

	result, err := f.svc.PlaceOrder(context.Background(), "user-1", Request{
		Shipping:      shippingFixture(),
		PaymentMethod: models.PaymentMethodCOD,
		Item:          &models.OrderItem{ProductID: "prod_1", Name: "Jacksnack Alpha", Price: 1.00, Quantity: 5},
	})
	require.NoError(t, err)

	assert.Equal(t, 2.00, result.Order.Amount)
	// Buy-now never clears the cart.
	assert.Equal(t, 0, f.carts.clearCalls)
}

func TestPlaceOrder_ValidationBlocksBeforeSideEffects(t *testing.T) {
	f := newFixture([]models.CartItem{{ProductID: "prod_2", Price: 55.00, Quantity: 1}})

	bad := codRequest()
	bad.Shipping.Phone = ""
	_, err := f.svc.PlaceOrder(context.Background(), "user-1", bad)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.notifier.notified)
	assert.Empty(t, f.keys.claimed)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.PlaceOrder(context.Background(), "user-1", codRequest())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_DuplicateCheckoutKeyRejected(t *testing.T) {
	f := newFixture([]models.CartItem{{ProductID: "prod_2", Price: 55.00, Quantity: 1}})

	req := codRequest()
	req.CheckoutKey = "attempt-1"

	_, err := f.svc.PlaceOrder(context.Background(), "user-1", req)
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(context.Background(), "user-1", req)
	assert.ErrorIs(t, err, ErrDuplicateCheckout)
	assert.Len(t, f.orders.created, 1)
}

func TestPlaceOrder_GatewayFlowDefersPersistence(t *testing.T) {
	f := newFixture([]models.CartItem{
		{ProductID: "prod_2", Name: "Bhindi Treat Mini", Price: 55.00, Quantity: 1},
	})

	result, err := f.svc.PlaceOrder(context.Background(), "user-1", Request{
		Shipping:      shippingFixture(),
		PaymentMethod: models.PaymentMethodRazorpay,
	})
	require.NoError(t, err)

	assert.Nil(t, result.Order)
	require.NotNil(t, result.PaymentLink)
	assert.Equal(t, "plink_1", result.PaymentLink.ID)

	// Nothing persisted, nothing notified, cart untouched.
	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.notifier.notified)
	assert.Equal(t, 0, f.carts.clearCalls)

	order, err := f.svc.ConfirmPayment(context.Background(), result.CheckoutKey, "pay_123")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, "pay_123", order.PaymentID)
	require.Len(t, f.orders.created, 1)
	require.Len(t, f.notifier.notified, 1)
	assert.Equal(t, 1, f.carts.clearCalls)
}

func TestConfirmPayment_UnknownKey(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.ConfirmPayment(context.Background(), "missing", "pay_123")
	assert.ErrorIs(t, err, ErrCheckoutNotFound)
}

func TestCancelPayment_LeavesNoTrace(t *testing.T) {
	f := newFixture([]models.CartItem{{ProductID: "prod_2", Name: "Bhindi Treat Mini", Price: 55.00, Quantity: 1}})

	result, err := f.svc.PlaceOrder(context.Background(), "user-1", Request{
		Shipping:      shippingFixture(),
		PaymentMethod: models.PaymentMethodRazorpay,
		CheckoutKey:   "attempt-1",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelPayment(context.Background(), result.CheckoutKey))

	assert.Empty(t, f.orders.created)
	assert.Empty(t, f.notifier.notified)
	assert.Equal(t, 0, f.carts.clearCalls)

	// The attempt key is released, so the same attempt can be resubmitted.
	_, err = f.svc.PlaceOrder(context.Background(), "user-1", Request{
		Shipping:      shippingFixture(),
		PaymentMethod: models.PaymentMethodCOD,
		CheckoutKey:   "attempt-1",
	})
	assert.NoError(t, err)

	// A second cancel finds nothing.
	assert.ErrorIs(t, f.svc.CancelPayment(context.Background(), "attempt-1"), ErrCheckoutNotFound)
}

func TestPlaceOrder_GatewayUnavailableReleasesKey(t *testing.T) {
	f := newFixture([]models.CartItem{{ProductID: "prod_2", Price: 55.00, Quantity: 1}})
	f.gateway.err = payment.ErrUnavailable

	req := Request{
		Shipping:      shippingFixture(),
		PaymentMethod: models.PaymentMethodRazorpay,
		CheckoutKey:   "attempt-1",
	}
	_, err := f.svc.PlaceOrder(context.Background(), "user-1", req)
	assert.ErrorIs(t, err, payment.ErrUnavailable)
	assert.Empty(t, f.orders.created)

	// Retry of the same attempt is not blocked by a stale claim.
	f.gateway.err = nil
	_, err = f.svc.PlaceOrder(context.Background(), "user-1", req)
	assert.NoError(t, err)
}

func TestPlaceOrder_PersistFailurePropagatesCategory(t *testing.T) {
	f := newFixture([]models.CartItem{{ProductID: "prod_2", Price: 55.00, Quantity: 1}})
	f.orders.err = orders.ErrPermissionDenied

	_, err := f.svc.PlaceOrder(context.Background(), "user-1", codRequest())

	assert.ErrorIs(t, err, orders.ErrPermissionDenied)
	assert.Empty(t, f.notifier.notified)
	assert.Equal(t, 0, f.carts.clearCalls)
}

func TestPlaceOrder_CartLoadErrorPropagates(t *testing.T) {
	f := newFixture(nil)
	f.carts.getErr = errors.New("mongo down")

	_, err := f.svc.PlaceOrder(context.Background(), "user-1", codRequest())
	assert.Error(t, err)
	assert.Empty(t, f.keys.claimed)
}

func TestPlaceOrder_WritesAuditEntry(t *testing.T) {
	f := newFixture([]models.CartItem{{ProductID: "prod_2", Price: 55.00, Quantity: 1}})
	auditor := newMockAuditor()
	f.svc = NewService(f.carts, f.orders, f.gateway, f.keys, f.notifier, auditor, f.calc, "INR", zap.NewNop())

	result, err := f.svc.PlaceOrder(context.Background(), "user-1", codRequest())
	require.NoError(t, err)

	select {
	case entry := <-auditor.entries:
		assert.Equal(t, "create_order", entry.Action)
		assert.Equal(t, result.Order.ID, entry.EntityID)
		assert.Equal(t, "user-1", entry.Data["user_id"])
	case <-time.After(time.Second):
		t.Fatal("no audit entry written")
	}
}
