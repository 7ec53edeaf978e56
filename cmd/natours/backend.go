// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/auth/memory"
	"github.com/natours/natours/internal/auth/mongodb"
	"github.com/natours/natours/internal/auth/postgres"
	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/internal/store"
)

// accountBackend is an opened account store together with its health check
// and teardown.
type accountBackend struct {
	Driver   string
	Accounts auth.AccountStore
	Ping     func(ctx context.Context) error
	Close    func(ctx context.Context) error
}

func noopPing(context.Context) error { return nil }

// openBackend connects the store named by cfg.Store.Driver. For postgres it
// applies pending migrations first when auto_migrate is set.
func openBackend(ctx context.Context, cfg *config.Config, newMigrator func(string) (Migrator, error)) (*accountBackend, error) {
	policy := store.RetryPolicy{
		MaxRetries: cfg.Store.ConnectRetries,
		BaseDelay:  cfg.Store.ConnectBackoff,
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if cfg.Store.AutoMigrate {
			if err := autoMigrate(cfg.Store.DatabaseURL, newMigrator); err != nil {
				return nil, err
			}
		}
		pool, err := store.OpenPostgres(ctx, cfg.Store.DatabaseURL, policy)
		if err != nil {
			return nil, err
		}
		return &accountBackend{
			Driver:   config.DriverPostgres,
			Accounts: postgres.NewAccountRepository(pool),
			Ping:     pool.Ping,
			Close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case config.DriverMongo:
		client, err := store.ConnectMongo(ctx, cfg.Store.MongoURI, policy)
		if err != nil {
			return nil, err
		}
		repo := mongodb.NewAccountRepository(client.Database(cfg.Store.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx)) //nolint:errcheck // index error takes precedence
			return nil, err
		}
		return &accountBackend{
			Driver:   config.DriverMongo,
			Accounts: repo,
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx, readpref.Primary())
			},
			Close: client.Disconnect,
		}, nil

	case config.DriverMemory:
		slog.Warn("using the in-memory account store; accounts are lost on exit")
		return &accountBackend{
			Driver:   config.DriverMemory,
			Accounts: memory.NewAccountStore(),
			Ping:     noopPing,
			Close:    func(context.Context) error { return nil },
		}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").With("key", "store.driver").Errorf("unknown store %q", cfg.Store.Driver)
	}
}

// autoMigrate applies pending schema migrations before the pool is opened.
func autoMigrate(databaseURL string, newMigrator func(string) (Migrator, error)) error {
	migrator, err := newMigrator(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	version, _, err := migrator.Version()
	if err != nil {
		slog.Warn("migrations applied but version unknown", "error", err)
		return nil
	}
	slog.Info("database migrations applied", "version", version)
	return nil
}
