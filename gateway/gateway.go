package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/checkout"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// CartStore is the cart surface the gateway mutates and reads.
type CartStore interface {
	Add(ctx context.Context, userID string, product models.Product, quantity int) error
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*models.Cart, error)
}

// CheckoutService runs checkout submissions and payment callbacks.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, userID string, req checkout.Request) (*checkout.Result, error)
	ConfirmPayment(ctx context.Context, key, paymentID string) (*models.Order, error)
	CancelPayment(ctx context.Context, key string) error
}

// OrderReader serves the read-only order views.
type OrderReader interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
}

// ContactStore persists contact-form submissions.
type ContactStore interface {
	SaveContactMessage(ctx context.Context, msg *repository.ContactMessage) error
}

// AutoResponder acknowledges contact-form submissions by email, best effort.
type AutoResponder interface {
	SendContactAutoResponse(ctx context.Context, name, email, message string) error
}

type Gateway struct {
	logger   *zap.Logger
	router   *gin.Engine
	addr     string
	catalog  *catalog.Catalog
	carts    CartStore
	stream   *cart.Stream
	checkout CheckoutService
	orders   OrderReader
	contacts ContactStore
	mailer   AutoResponder
}

type Deps struct {
	Catalog  *catalog.Catalog
	Carts    CartStore
	Stream   *cart.Stream
	Checkout CheckoutService
	Orders   OrderReader
	Contacts ContactStore
	Mailer   AutoResponder
}

func New(host string, port int, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		logger:   logger,
		router:   router,
		addr:     fmt.Sprintf("%s:%d", host, port),
		catalog:  deps.Catalog,
		carts:    deps.Carts,
		stream:   deps.Stream,
		checkout: deps.Checkout,
		orders:   deps.Orders,
		contacts: deps.Contacts,
		mailer:   deps.Mailer,
	}
	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := g.router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", g.listProducts)
			products.GET("/:id", g.getProduct)
		}

		carts := v1.Group("/cart", g.requireUser())
		{
			carts.GET("", g.getCart)
			carts.GET("/stream", g.streamCart)
			carts.POST("/items", g.addCartItem)
			carts.DELETE("/items/:id", g.removeCartItem)
			carts.DELETE("", g.clearCart)
		}

		v1.POST("/checkout", g.requireUser(), g.placeOrder)

		payments := v1.Group("/payments")
		{
			payments.POST("/callback", g.paymentCallback)
			payments.POST("/cancel", g.paymentCancel)
		}

		orders := v1.Group("/orders", g.requireUser())
		{
			orders.GET("", g.listOrders)
			orders.GET("/:id", g.getOrder)
		}

		v1.POST("/contact", g.submitContact)
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	g.logger.Info("Gateway starting", zap.String("address", g.addr))
	return g.router.Run(g.addr)
}

// Router exposes the handler tree for tests.
func (g *Gateway) Router() *gin.Engine {
	return g.router
}

const userIDKey = "userID"

// requireUser reads the authenticated user identity. Session handling lives
// in front of this service; an absent identity maps to the login prompt.
func (g *Gateway) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"error": "You must be logged in to do that.",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
