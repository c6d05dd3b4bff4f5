package checkout

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/pricing"
	"github.com/example/storefront/pkg/repository"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// CartStore is the slice of the cart store checkout needs: a snapshot at
// submission time and atomic clearing after a persisted order.
type CartStore interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// OrderStore is the append-only persistence surface.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) (string, error)
}

// PaymentGateway opens third-party checkout flows.
type PaymentGateway interface {
	CreateLink(ctx context.Context, amount int64, currency, description string, customer payment.Customer) (*payment.Link, error)
}

// Notifier announces persisted orders. Fire-and-forget: implementations must
// never surface failures into the checkout flow.
type Notifier interface {
	Notify(order *models.Order)
}

// Auditor records an audit trail entry for each persisted order. Optional;
// audit failures never affect the order.
type Auditor interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

// KeyStore backs the per-attempt idempotency key and the stash of checkouts
// awaiting a gateway callback.
type KeyStore interface {
	ClaimKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseKey(ctx context.Context, key string) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Del(ctx context.Context, keys ...string) error
}

const (
	keyTTL      = 24 * time.Hour
	pendingTTL  = time.Hour
	pendingRoot = "checkout:pending:"
)

// Request is one checkout submission. Item, when set, is a buy-now purchase
// of a single product that bypasses the cart. CheckoutKey lets a client
// resubmit the same attempt safely; when empty a fresh key is generated.
type Request struct {
	Shipping      ShippingInfo
	PaymentMethod string
	CheckoutKey   string
	Item          *models.OrderItem
}

// Result of a checkout submission. For cash-on-delivery the order is already
// persisted and Order is set. For gateway payments PaymentLink is set and the
// order is created only once ConfirmPayment runs.
type Result struct {
	CheckoutKey string
	Order       *models.Order
	PaymentLink *payment.Link
}

// pendingCheckout is the stashed draft between payment initiation and the
// gateway callback.
type pendingCheckout struct {
	Order    models.Order `json:"order"`
	FromCart bool         `json:"from_cart"`
}

// Service orchestrates a checkout: validate, snapshot, price, claim the
// attempt key, then either persist immediately (COD) or hand off to the
// payment gateway and finish in ConfirmPayment. Persistence strictly follows
// payment confirmation, so a cancelled or failed payment leaves no order
// behind.
type Service struct {
	carts    CartStore
	orders   OrderStore
	payments PaymentGateway
	keys     KeyStore
	notifier Notifier
	auditor  Auditor
	calc     *pricing.Calculator
	currency string
	logger   *zap.Logger
}

func NewService(carts CartStore, orders OrderStore, payments PaymentGateway, keys KeyStore, notifier Notifier, auditor Auditor, calc *pricing.Calculator, currency string, logger *zap.Logger) *Service {
	return &Service{
		carts:    carts,
		orders:   orders,
		payments: payments,
		keys:     keys,
		notifier: notifier,
		auditor:  auditor,
		calc:     calc,
		currency: currency,
		logger:   logger,
	}
}

func (s *Service) PlaceOrder(ctx context.Context, userID string, req Request) (*Result, error) {
	if err := req.Shipping.Validate(); err != nil {
		return nil, err
	}
	if req.PaymentMethod != models.PaymentMethodRazorpay && req.PaymentMethod != models.PaymentMethodCOD {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.PaymentMethod)
	}

	items, fromCart, err := s.itemsFor(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	totals := s.calc.Totals(items)

	key := req.CheckoutKey
	if key == "" {
		key = uuid.NewString()
	}
	claimed, err := s.keys.ClaimKey(ctx, key, keyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim checkout key: %w", err)
	}
	if !claimed {
		return nil, ErrDuplicateCheckout
	}

	if req.PaymentMethod == models.PaymentMethodCOD {
		return s.placeCOD(ctx, userID, key, items, req.Shipping, totals, fromCart)
	}
	return s.startGatewayPayment(ctx, userID, key, items, req.Shipping, totals, fromCart)
}

func (s *Service) itemsFor(ctx context.Context, userID string, req Request) ([]models.OrderItem, bool, error) {
	if req.Item != nil {
		if req.Item.Quantity < 1 {
			return nil, false, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		return []models.OrderItem{*req.Item}, false, nil
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(cart.Items) == 0 {
		return nil, false, ErrEmptyCart
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}
	return items, true, nil
}

func (s *Service) placeCOD(ctx context.Context, userID, key string, items []models.OrderItem, shipping ShippingInfo, totals pricing.Totals, fromCart bool) (*Result, error) {
	order, err := AssembleOrder(userID, key, items, shipping, models.PaymentMethodCOD, "", totals.Total)
	if err != nil {
		return nil, err
	}

	if _, err := s.orders.Create(ctx, order); err != nil {
		// Free the key so a manual retry of the same attempt can proceed.
		if relErr := s.keys.ReleaseKey(ctx, key); relErr != nil {
			s.logger.Warn("Failed to release checkout key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, err
	}

	s.finish(ctx, userID, order, fromCart)

	return &Result{CheckoutKey: key, Order: order}, nil
}

func (s *Service) startGatewayPayment(ctx context.Context, userID, key string, items []models.OrderItem, shipping ShippingInfo, totals pricing.Totals, fromCart bool) (*Result, error) {
	draft, err := AssembleOrder(userID, key, items, shipping, models.PaymentMethodRazorpay, "", totals.Total)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}

	link, err := s.payments.CreateLink(ctx, minorUnits(totals.Total), s.currency,
		fmt.Sprintf("Order for %s", strings.Join(names, ", ")),
		payment.Customer{Name: draft.CustomerName, Contact: draft.Phone})
	if err != nil {
		if relErr := s.keys.ReleaseKey(ctx, key); relErr != nil {
			s.logger.Warn("Failed to release checkout key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, err
	}

	stash := pendingCheckout{Order: *draft, FromCart: fromCart}
	if err := s.keys.SetJSON(ctx, pendingRoot+key, stash, pendingTTL); err != nil {
		if relErr := s.keys.ReleaseKey(ctx, key); relErr != nil {
			s.logger.Warn("Failed to release checkout key", zap.String("key", key), zap.Error(relErr))
		}
		return nil, fmt.Errorf("failed to stash pending checkout: %w", err)
	}

	s.logger.Info("Payment initiated",
		zap.String("checkout_key", key),
		zap.String("link_id", link.ID),
		zap.Float64("amount", totals.Total))

	return &Result{CheckoutKey: key, PaymentLink: link}, nil
}

// ConfirmPayment completes a gateway checkout after the success callback. The
// payment reference is recorded and only then is the order persisted.
func (s *Service) ConfirmPayment(ctx context.Context, key, paymentID string) (*models.Order, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrValidation)
	}

	var stash pendingCheckout
	if err := s.keys.GetJSON(ctx, pendingRoot+key, &stash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckoutNotFound, err)
	}

	order := stash.Order
	order.PaymentID = paymentID
	order.PaymentStatus = models.PaymentStatusPaid

	if _, err := s.orders.Create(ctx, &order); err != nil {
		return nil, err
	}

	if err := s.keys.Del(ctx, pendingRoot+key); err != nil {
		s.logger.Warn("Failed to drop pending checkout", zap.String("key", key), zap.Error(err))
	}

	s.finish(ctx, order.UserID, &order, stash.FromCart)

	return &order, nil
}

// CancelPayment handles the user dismissing the gateway flow. Nothing has
// been persisted, so there is nothing to compensate: drop the stash and free
// the attempt key.
func (s *Service) CancelPayment(ctx context.Context, key string) error {
	var stash pendingCheckout
	if err := s.keys.GetJSON(ctx, pendingRoot+key, &stash); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckoutNotFound, err)
	}

	if err := s.keys.Del(ctx, pendingRoot+key); err != nil {
		s.logger.Warn("Failed to drop pending checkout", zap.String("key", key), zap.Error(err))
	}
	if err := s.keys.ReleaseKey(ctx, key); err != nil {
		s.logger.Warn("Failed to release checkout key", zap.String("key", key), zap.Error(err))
	}

	s.logger.Info("Payment cancelled by user", zap.String("checkout_key", key))
	return nil
}

// finish runs the post-persistence side effects: best-effort notification and
// cart clearing. Neither can undo the already-committed order.
func (s *Service) finish(ctx context.Context, userID string, order *models.Order, fromCart bool) {
	s.notifier.Notify(order)

	if s.auditor != nil {
		go func() {
			entry := &repository.AuditLog{
				Service:  "storefront",
				Action:   "create_order",
				EntityID: order.ID,
				Data: bson.M{
					"user_id":        order.UserID,
					"amount":         order.Amount,
					"payment_method": order.PaymentMethod,
				},
			}
			if err := s.auditor.CreateAuditLog(context.Background(), entry); err != nil {
				s.logger.Error("Failed to write audit log",
					zap.String("order_id", order.ID),
					zap.Error(err))
			}
		}()
	}

	if fromCart {
		if err := s.carts.Clear(ctx, userID); err != nil {
			s.logger.Error("Failed to clear cart after order",
				zap.String("user_id", userID),
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}
}

func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
