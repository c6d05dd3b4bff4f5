package cart

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	if testing.Short() {
		t.Skip("requires Docker")
	}
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	store := NewStore(client.Database("testdb"), nil, zap.NewNop())
	require.NoError(t, store.CreateIndexes(ctx))

	cleanup := func() {
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("failed to disconnect: %s", err)
		}
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestStore_AddCreatesCartDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	err := store.Add(ctx, "user123", models.Product{ID: "prod_2", Name: "Bhindi Treat Mini", Price: 55.00}, 3)
	require.NoError(t, err)

	cart, err := store.Get(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", cart.UserID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "prod_2", cart.Items[0].ProductID)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 55.00, cart.Items[0].Price)
}

func TestStore_AddIncrementsExistingLine(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	product := models.Product{ID: "prod_2", Name: "Bhindi Treat Mini", Price: 55.00}

	err := store.Add(ctx, "user123", product, 2)
	require.NoError(t, err)
	err = store.Add(ctx, "user123", product, 3)
	require.NoError(t, err)

	// One line, quantities summed
	cart, err := store.Get(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestStore_AddPushesNewLineForOtherProduct(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	err := store.Add(ctx, "user123", models.Product{ID: "prod_2", Price: 55.00}, 1)
	require.NoError(t, err)
	err = store.Add(ctx, "user123", models.Product{ID: "prod_3", Price: 99.00}, 2)
	require.NoError(t, err)

	cart, err := store.Get(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "prod_2", cart.Items[0].ProductID)
	assert.Equal(t, "prod_3", cart.Items[1].ProductID)
}

func TestStore_RemoveAbsentLineIsNoOp(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	err := store.Add(ctx, "user123", models.Product{ID: "prod_2", Price: 55.00}, 1)
	require.NoError(t, err)

	// Line never added
	err = store.Remove(ctx, "user123", "prod_3")
	require.NoError(t, err)

	cart, err := store.Get(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "prod_2", cart.Items[0].ProductID)

	// User with no cart document at all
	err = store.Remove(ctx, "user456", "prod_2")
	assert.NoError(t, err)
}

func TestStore_RemoveDeletesLine(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	err := store.Add(ctx, "user123", models.Product{ID: "prod_2", Price: 55.00}, 2)
	require.NoError(t, err)
	err = store.Add(ctx, "user123", models.Product{ID: "prod_3", Price: 99.00}, 1)
	require.NoError(t, err)

	err = store.Remove(ctx, "user123", "prod_2")
	require.NoError(t, err)

	cart, err := store.Get(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "prod_3", cart.Items[0].ProductID)
}

func TestStore_ClearDeletesWholeCart(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	err := store.Add(ctx, "user123", models.Product{ID: "prod_2", Price: 55.00}, 2)
	require.NoError(t, err)
	err = store.Add(ctx, "user123", models.Product{ID: "prod_3", Price: 99.00}, 1)
	require.NoError(t, err)

	err = store.Clear(ctx, "user123")
	require.NoError(t, err)

	cart, err := store.Get(ctx, "user123")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// Clearing an already-empty cart is fine
	err = store.Clear(ctx, "user123")
	assert.NoError(t, err)
}

func TestStore_GetMissingCartReturnsEmpty(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	cart, err := store.Get(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "nonexistent", cart.UserID)
	assert.Empty(t, cart.Items)
}
