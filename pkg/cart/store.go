package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrNotAuthenticated is returned for cart mutations without a signed-in
	// user. Nothing is written.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Store holds one cart document per user in the "carts" collection. A product
// occupies at most one line; Add increments the existing line instead of
// duplicating it.
//
// Known race: an increment racing a
// concurrent delete of the same line from another device can resurrect the
// line with only the incremented quantity. Increment and delete commute for
// distinct products only.
type Store struct {
	collection *mongo.Collection
	stream     *Stream
	logger     *zap.Logger
}

func NewStore(db *mongo.Database, stream *Stream, logger *zap.Logger) *Store {
	return &Store{
		collection: db.Collection("carts"),
		stream:     stream,
		logger:     logger,
	}
}

// CreateIndexes enforces one cart document per user.
func (s *Store) CreateIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}

// Add inserts a new line with the given quantity, or increments the existing
// line for the same product.
func (s *Store) Add(ctx context.Context, userID string, product models.Product, quantity int) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	now := time.Now()
	filter := bson.M{"user_id": userID}

	var existing models.Cart
	err := s.collection.FindOne(ctx, filter).Decode(&existing)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("failed to check existing cart: %w", err)
		}
		cart := &models.Cart{
			UserID: userID,
			Items: []models.CartItem{{
				ProductID: product.ID,
				Name:      product.Name,
				ImageURL:  product.ImageURL,
				Price:     product.Price,
				Quantity:  quantity,
				AddedAt:   now,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.collection.InsertOne(ctx, cart); err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		s.publish(ctx, userID)
		return nil
	}

	if existing.Line(product.ID) != nil {
		update := bson.M{
			"$inc": bson.M{"items.$[elem].quantity": quantity},
			"$set": bson.M{"updated_at": now},
		}
		arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"elem.product_id": product.ID},
			},
		})
		if _, err := s.collection.UpdateOne(ctx, filter, update, arrayFilters); err != nil {
			return fmt.Errorf("failed to increment line: %w", err)
		}
	} else {
		update := bson.M{
			"$push": bson.M{"items": models.CartItem{
				ProductID: product.ID,
				Name:      product.Name,
				ImageURL:  product.ImageURL,
				Price:     product.Price,
				Quantity:  quantity,
				AddedAt:   now,
			}},
			"$set": bson.M{"updated_at": now},
		}
		if _, err := s.collection.UpdateOne(ctx, filter, update); err != nil {
			return fmt.Errorf("failed to add line: %w", err)
		}
	}

	s.publish(ctx, userID)
	return nil
}

// Remove deletes the line for productID. Removing an absent line, or from an
// absent cart, is a no-op.
func (s *Store) Remove(ctx context.Context, userID, productID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{"items": bson.M{"product_id": productID}},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	if _, err := s.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove line: %w", err)
	}

	s.publish(ctx, userID)
	return nil
}

// Clear deletes the whole cart document in a single operation, so a clear can
// never leave a partially emptied cart behind.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	if _, err := s.collection.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	s.publish(ctx, userID)
	return nil
}

// Get returns the user's current cart; a user with no cart document gets an
// empty cart.
func (s *Store) Get(ctx context.Context, userID string) (*models.Cart, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	var cart models.Cart
	err := s.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			now := time.Now()
			return &models.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (s *Store) publish(ctx context.Context, userID string) {
	if s.stream == nil {
		return
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load cart for change event",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.stream.Publish(Changed{UserID: userID, Items: cart.Items})
}
