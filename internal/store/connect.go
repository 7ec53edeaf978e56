// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// RetryPolicy controls how connection attempts are retried at startup.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries five times starting at 500ms with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultRetryPolicy().BaseDelay
	}
	return retry.WithMaxRetries(p.MaxRetries, retry.NewExponential(base))
}

// OpenPostgres creates a pgx pool for dsn and waits until the server answers
// a ping.
func OpenPostgres(ctx context.Context, dsn string, policy RetryPolicy) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	err = retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

// ConnectMongo connects to uri and waits until the primary answers a ping.
func ConnectMongo(ctx context.Context, uri string, policy RetryPolicy) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, oops.Code("MONGO_CONNECT_FAILED").With("operation", "connect").Wrap(err)
	}

	err = retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		if pingErr := client.Ping(ctx, readpref.Primary()); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx)) //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("MONGO_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return client, nil
}
