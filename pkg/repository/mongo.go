package repository

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Database exposes the underlying handle for collection-scoped stores.
func (m *MongoRepository) Database() *mongo.Database {
	return m.database
}

// ContactMessage is a stored contact-form submission.
type ContactMessage struct {
	ID          string    `bson:"_id,omitempty"`
	Name        string    `bson:"name"`
	Email       string    `bson:"email"`
	Message     string    `bson:"message"`
	SubmittedAt time.Time `bson:"submitted_at"`
}

func (m *MongoRepository) SaveContactMessage(ctx context.Context, msg *ContactMessage) error {
	collection := m.database.Collection("messages")
	msg.SubmittedAt = time.Now()
	_, err := collection.InsertOne(ctx, msg)
	return err
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        string    `bson:"_id,omitempty"`
	Service   string    `bson:"service"`
	Action    string    `bson:"action"`
	EntityID  string    `bson:"entity_id"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	collection := m.database.Collection("audit_logs")
	log.CreatedAt = time.Now()
	_, err := collection.InsertOne(ctx, log)
	return err
}
