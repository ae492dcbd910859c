package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig holds MongoDB connection configuration.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// DefaultMongoConfig returns the default archive location.
func DefaultMongoConfig(uri string) *MongoConfig {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	return &MongoConfig{
		URI:        uri,
		Database:   "pharmacy_assistant",
		Collection: "conversation_runs",
	}
}

// MongoRecorder archives run entries in a MongoDB collection.
type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ Recorder = (*MongoRecorder)(nil)

// NewMongoRecorder connects to MongoDB and prepares the archive collection.
func NewMongoRecorder(config *MongoConfig) (*MongoRecorder, error) {
	if config == nil {
		config = DefaultMongoConfig("")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}
	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &MongoRecorder{client: client, collection: collection}, nil
}

// Record inserts one run entry.
func (r *MongoRecorder) Record(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.ID = fmt.Sprintf("run:%d", time.Now().UnixNano())

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert run entry: %w", err)
	}
	return nil
}

// Recent returns the most recent archived runs, newest first.
func (r *MongoRecorder) Recent(ctx context.Context, limit int64) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query run entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode run entries: %w", err)
	}
	return entries, nil
}

// Close disconnects from MongoDB.
func (r *MongoRecorder) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
