package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/checkout"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// User-facing messages for the error taxonomy. The permission-denied message
// is deliberately distinct: it points at store configuration, because the
// user cannot fix it by retrying.
const (
	msgPermissionDenied = "The order could not be saved because the store's database rejected the write. Please ask the operator to check the access-control configuration."
	msgGenericFailure   = "An unexpected error occurred. Please try again."
	msgPaymentDown      = "Online payment is currently unavailable. Please try cash on delivery."
)

func (g *Gateway) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, checkout.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty."})
	case errors.Is(err, cart.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You must be logged in to do that."})
	case errors.Is(err, catalog.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found."})
	case errors.Is(err, checkout.ErrCheckoutNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending checkout for this key."})
	case errors.Is(err, checkout.ErrDuplicateCheckout), errors.Is(err, orders.ErrDuplicateCheckout):
		c.JSON(http.StatusConflict, gin.H{"error": "This checkout was already submitted."})
	case errors.Is(err, payment.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgPaymentDown})
	case errors.Is(err, orders.ErrPermissionDenied):
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgPermissionDenied})
	default:
		g.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgGenericFailure})
	}
}

func (g *Gateway) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": g.catalog.List()})
}

func (g *Gateway) getProduct(c *gin.Context) {
	product, err := g.catalog.Get(c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (g *Gateway) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := g.catalog.Get(req.ProductID)
	if err != nil {
		g.fail(c, err)
		return
	}

	if err := g.carts.Add(c.Request.Context(), currentUser(c), product, req.Quantity); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to cart."})
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	// Removing an absent line is a no-op, never an error.
	if err := g.carts.Remove(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed."})
}

func (g *Gateway) clearCart(c *gin.Context) {
	if err := g.carts.Clear(c.Request.Context(), currentUser(c)); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared."})
}

func (g *Gateway) getCart(c *gin.Context) {
	userCart, err := g.carts.Get(c.Request.Context(), currentUser(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userCart)
}

// streamCart pushes the live line-item set over server-sent events until the
// client goes away. The first event is the current snapshot, every following
// one a change.
func (g *Gateway) streamCart(c *gin.Context) {
	userID := currentUser(c)

	snapshot, err := g.carts.Get(c.Request.Context(), userID)
	if err != nil {
		g.fail(c, err)
		return
	}

	sub := g.stream.Subscribe(userID)
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")

	c.SSEvent("cart", snapshot.Items)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case items := <-sub.C:
			c.SSEvent("cart", items)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type checkoutRequest struct {
	Shipping      checkout.ShippingInfo `json:"shipping"`
	PaymentMethod string                `json:"payment_method" binding:"required"`
	CheckoutKey   string                `json:"checkout_key"`
	Item          *models.OrderItem     `json:"item,omitempty"`
}

func (g *Gateway) placeOrder(c *gin.Context) {
	var req checkoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := g.checkout.PlaceOrder(c.Request.Context(), currentUser(c), checkout.Request{
		Shipping:      req.Shipping,
		PaymentMethod: req.PaymentMethod,
		CheckoutKey:   req.CheckoutKey,
		Item:          req.Item,
	})
	if err != nil {
		g.fail(c, err)
		return
	}

	if result.PaymentLink != nil {
		c.JSON(http.StatusAccepted, gin.H{
			"checkout_key": result.CheckoutKey,
			"payment_link": result.PaymentLink,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"checkout_key": result.CheckoutKey,
		"order":        result.Order,
		"message":      "Your order has been placed successfully. You will pay on delivery.",
	})
}

type paymentCallbackRequest struct {
	CheckoutKey string `json:"checkout_key" binding:"required"`
	PaymentID   string `json:"payment_id" binding:"required"`
}

func (g *Gateway) paymentCallback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := g.checkout.ConfirmPayment(c.Request.Context(), req.CheckoutKey, req.PaymentID)
	if err != nil {
		g.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":   order,
		"message": "Payment successful! Your order has been placed.",
	})
}

type paymentCancelRequest struct {
	CheckoutKey string `json:"checkout_key" binding:"required"`
}

func (g *Gateway) paymentCancel(c *gin.Context) {
	var req paymentCancelRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := g.checkout.CancelPayment(c.Request.Context(), req.CheckoutKey); err != nil {
		g.fail(c, err)
		return
	}

	// Informational, not an error banner.
	c.JSON(http.StatusOK, gin.H{"message": "You canceled the payment process."})
}

func (g *Gateway) getOrder(c *gin.Context) {
	order, err := g.orders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	if order.UserID != currentUser(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found."})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) listOrders(c *gin.Context) {
	list, err := g.orders.ListByUser(c.Request.Context(), currentUser(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "total": len(list)})
}

type contactRequest struct {
	Name    string `json:"name" binding:"required,min=2"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,min=10"`
}

func (g *Gateway) submitContact(c *gin.Context) {
	var req contactRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data provided."})
		return
	}

	err := g.contacts.SaveContactMessage(c.Request.Context(), &repository.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		g.fail(c, err)
		return
	}

	// Auto-response is best effort; the submission already succeeded.
	if err := g.mailer.SendContactAutoResponse(c.Request.Context(), req.Name, req.Email, req.Message); err != nil {
		g.logger.Warn("Contact auto-response failed",
			zap.String("email", req.Email),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
