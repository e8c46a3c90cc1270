package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"podpal/internal/api/handler"
	"podpal/internal/domain/model"
	"podpal/internal/domain/repository"
	"podpal/internal/platform/config"
	"podpal/internal/platform/database"
)

// stores bundles the repositories of whichever database STORE_DRIVER selects.
type stores struct {
	accounts repository.AccountRepository
	podcasts repository.PodcastRepository
	admins   repository.AdminRepository

	check handler.HealthCheck
	close func()
}

// storeDeps holds injectable store constructors. Nil fields use the defaults.
type storeDeps struct {
	// Default: database.ConnectMongo
	ConnectMongo func(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error)
	// Default: database.EnsureMongoIndexes
	EnsureMongoIndexes func(ctx context.Context, db *mongo.Database) error
}

func (d storeDeps) withDefaults() storeDeps {
	if d.ConnectMongo == nil {
		d.ConnectMongo = database.ConnectMongo
	}
	if d.EnsureMongoIndexes == nil {
		d.EnsureMongoIndexes = database.EnsureMongoIndexes
	}
	return d
}

func openStores(ctx context.Context, cfg *config.Config, hasher model.PasswordHasher, migrate bool) (*stores, error) {
	return openStoresWithDeps(ctx, cfg, hasher, migrate, storeDeps{})
}

// openStoresWithDeps applies Postgres migrations only when asked; Mongo
// indexes are ensured on every start.
func openStoresWithDeps(ctx context.Context, cfg *config.Config, hasher model.PasswordHasher, migrate bool, deps storeDeps) (*stores, error) {
	deps = deps.withDefaults()
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, err := deps.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.Mongo.Database)
		if err := deps.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &stores{
			accounts: repository.NewMongoAccountRepository(client, db, hasher),
			podcasts: repository.NewMongoPodcastRepository(client, db),
			admins:   repository.NewMongoAdminRepository(client, db),
			check:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					slog.Error("failed to disconnect from MongoDB", "error", err)
				}
			},
		}, nil

	case config.StoreDriverPostgres:
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			slog.InfoContext(ctx, "database migrations applied")
		}
		return &stores{
			accounts: repository.NewPgAccountRepository(pool, hasher),
			podcasts: repository.NewPgPodcastRepository(pool),
			admins:   repository.NewPgAdminRepository(pool),
			check:    pool.Ping,
			close:    pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
