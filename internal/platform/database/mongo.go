package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"podpal/internal/platform/config"
)

var ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

// ConnectMongo retries the initial connection a few times before giving up.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.URL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetRetryWrites(true).
				SetRetryReads(true),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				slog.Info("connected to MongoDB", "database", cfg.Database)
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err
		slog.Warn("mongo connection attempt failed", "attempt", attempt, "error", err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryInterval):
			}
		}
	}
	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// EnsureMongoIndexes creates the unique indexes for emails, slugs and one channel per user.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}

	indexes := map[string][]mongo.IndexModel{
		"users": {
			unique(bson.D{{Key: "email", Value: 1}}),
			{Keys: bson.D{{Key: "name", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		"channels": {
			unique(bson.D{{Key: "user", Value: 1}}),
			unique(bson.D{{Key: "slug", Value: 1}}),
		},
		"podcasts": {
			{Keys: bson.D{{Key: "channel", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		"admins": {
			unique(bson.D{{Key: "email", Value: 1}}),
			unique(bson.D{{Key: "username", Value: 1}}),
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}
