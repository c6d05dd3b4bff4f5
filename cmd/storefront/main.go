package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/catalog"
	"github.com/example/storefront/pkg/checkout"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/orders"
	"github.com/example/storefront/pkg/payment"
	"github.com/example/storefront/pkg/pricing"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting storefront service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	if !cfg.Razorpay.Configured() {
		logger.Warn("Payment gateway keys missing, online payment will be unavailable")
	}
	if !cfg.Notify.EmailConfigured() {
		logger.Warn("Email credentials missing, order notifications will be skipped")
	}

	// Stores
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}

	redisRepo := repository.NewRedisRepository(&cfg.Redis)

	orderRepo, err := orders.NewRepository(&cfg.MySQL, logger.Named("orders"))
	if err != nil {
		logger.Fatal("Failed to open order store", zap.Error(err))
	}

	ctx := context.Background()
	if err := mongoRepo.Ping(ctx); err != nil {
		logger.Warn("MongoDB ping failed", zap.Error(err))
	}
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis ping failed", zap.Error(err))
	}

	// Cart store with live change fan-out
	stream := cart.NewStream()
	cartStore := cart.NewStore(mongoRepo.Database(), stream, logger.Named("cart"))
	if err := cartStore.CreateIndexes(ctx); err != nil {
		logger.Warn("Failed to create cart indexes", zap.Error(err))
	}

	// Domain services
	productCatalog := catalog.New(&cfg.Catalog)
	calc := pricing.NewCalculator(&cfg.Pricing)
	paymentClient := payment.NewClient(&cfg.Razorpay, logger.Named("payment"))
	emailSender := notify.NewEmailSender(&cfg.Notify, logger.Named("email"))

	actorSystem := actor.NewActorSystem()
	dispatcher, err := notify.NewDispatcher(actorSystem, &cfg.Notify, emailSender, logger.Named("notify"))
	if err != nil {
		logger.Fatal("Failed to start notification dispatcher", zap.Error(err))
	}

	checkoutSvc := checkout.NewService(cartStore, orderRepo, paymentClient, redisRepo,
		dispatcher, mongoRepo, calc, cfg.Pricing.Currency, logger.Named("checkout"))

	// HTTP gateway
	gw := gateway.New(cfg.Server.Host, cfg.Server.Port, logger.Named("gateway"), gateway.Deps{
		Catalog:  productCatalog,
		Carts:    cartStore,
		Stream:   stream,
		Checkout: checkoutSvc,
		Orders:   orderRepo,
		Contacts: mongoRepo,
		Mailer:   emailSender,
	})

	// Service discovery
	registry, err := discovery.NewRegistry(&cfg.Etcd)
	if err != nil {
		logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
	}
	instance := &discovery.Instance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if registry != nil {
		if err := registry.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else {
			logger.Info("Service registered in etcd",
				zap.String("name", cfg.Server.Name),
				zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
		}
	}

	// Start gateway in goroutine
	gwErr := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil {
			gwErr <- err
		}
	}()

	logger.Info("Storefront started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-gwErr:
		logger.Fatal("Gateway error", zap.Error(err))
	}

	if registry != nil {
		if err := registry.Deregister(ctx, instance); err != nil {
			logger.Error("Failed to deregister service", zap.Error(err))
		}
		registry.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	actorSystem.Shutdown()
	if err := mongoRepo.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close MongoDB", zap.Error(err))
	}
	if err := redisRepo.Close(); err != nil {
		logger.Error("Failed to close Redis", zap.Error(err))
	}

	logger.Info("Storefront stopped")
}
