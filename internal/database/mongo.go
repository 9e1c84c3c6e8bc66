package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"propertybot/internal/config"
)

// NewMongo connects to MongoDB, verifies the connection and returns the
// client together with the listings collection.
func NewMongo(c config.MongoConfig) (*mongo.Client, *mongo.Collection, error) {
	if c.URI == "" {
		return nil, nil, fmt.Errorf("%w: mongo uri is required", ErrInvalidConfig)
	}
	if c.Database == "" || c.Collection == "" {
		return nil, nil, fmt.Errorf("%w: mongo database and collection are required", ErrInvalidConfig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI).SetAppName(ApplicationName))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(c.Database).Collection(c.Collection)
	return client, coll, nil
}

// EnsureMongoIndexes creates the listing indexes if they do not exist.
func EnsureMongoIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "project", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create mongo indexes: %w", err)
	}
	return nil
}
