package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrPermissionDenied means the database rejected the write for access
	// control reasons. This is operator misconfiguration, not user error, and
	// maps to a distinct user-facing message.
	ErrPermissionDenied = errors.New("order store permission denied")

	// ErrDuplicateCheckout means an order with the same checkout key already
	// exists; the unique index makes a double submit detectable.
	ErrDuplicateCheckout = errors.New("order already placed for this checkout")
)

// MySQL access-control error numbers.
var permissionErrNumbers = map[uint16]bool{
	1044: true, // ER_DBACCESS_DENIED_ERROR
	1045: true, // ER_ACCESS_DENIED_ERROR
	1142: true, // ER_TABLEACCESS_DENIED_ERROR
}

const duplicateEntryErrNumber = 1062

// Repository is the append-only order store. Orders are created once per
// successful checkout and never updated or deleted through this type.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRepository(cfg *config.MySQLConfig, logger *zap.Logger) (*Repository, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql db: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.AutoMigrate(&models.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &Repository{db: db, logger: logger}, nil
}

// Create persists the order and returns its id. The order must carry its id
// and checkout key already; Create only stamps the creation time.
func (r *Repository) Create(ctx context.Context, order *models.Order) (string, error) {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		r.logger.Error("Failed to create order",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return "", categorize(err)
	}

	return order.ID, nil
}

// GetByID reads a persisted order back, for delivery/status views.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s not found", id)
		}
		return nil, categorize(err)
	}
	return &order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, categorize(err)
	}
	return orders, nil
}

func categorize(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if permissionErrNumbers[mysqlErr.Number] {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		if mysqlErr.Number == duplicateEntryErrNumber {
			return fmt.Errorf("%w: %v", ErrDuplicateCheckout, err)
		}
	}
	return fmt.Errorf("order store error: %w", err)
}
