package checkout

import (
	"fmt"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/google/uuid"
)

// AssembleOrder builds the canonical order record from already-validated
// inputs. It is the single place order assembly happens for every checkout
// surface, cart or buy-now alike. Pure transformation, no I/O.
//
// Payment status: paid when a payment reference is present, cod for
// cash-on-delivery, pending otherwise.
func AssembleOrder(userID, checkoutKey string, items []models.OrderItem, shipping ShippingInfo, paymentMethod, paymentID string, amount float64) (*models.Order, error) {
	status := models.PaymentStatusPending
	switch {
	case paymentID != "":
		status = models.PaymentStatusPaid
	case paymentMethod == models.PaymentMethodCOD:
		status = models.PaymentStatusCOD
	}

	order := &models.Order{
		ID:            uuid.NewString(),
		CheckoutKey:   checkoutKey,
		UserID:        userID,
		CustomerName:  shipping.FullName(),
		Phone:         shipping.Phone,
		Address:       shipping.FullAddress(),
		Amount:        amount,
		PaymentMethod: paymentMethod,
		PaymentStatus: status,
		PaymentID:     paymentID,
		OrderStatus:   models.OrderStatusPlaced,
		CreatedAt:     time.Now(),
	}
	if err := order.SetItems(items); err != nil {
		return nil, fmt.Errorf("failed to snapshot order items: %w", err)
	}
	return order, nil
}
