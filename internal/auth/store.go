// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// SaveOptions controls how an AccountStore persists an update.
type SaveOptions struct {
	// Validate runs Account.Validate before writing. Bookkeeping writes
	// (login counters, reset tokens) skip it.
	Validate bool
}

// AccountStore manages account persistence. Lookups only return active
// accounts and always include the credential digest.
type AccountStore interface {
	// FindByEmail returns the account registered under email, compared in
	// normalized form. Returns ErrNotFound if none matches.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByID returns the account with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// FindByResetTokenHash returns the account holding the reset digest
	// whose expiry is after now, or ErrNotFound.
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*Account, error)

	// Create inserts a new account. Returns ErrEmailTaken if the email is
	// already registered.
	Create(ctx context.Context, acct *Account) error

	// Save writes every mutable field of an existing account.
	Save(ctx context.Context, acct *Account, opts SaveOptions) error

	// CreateMany inserts accounts in bulk for seeding.
	CreateMany(ctx context.Context, accts []*Account) error

	// DeleteAll removes every account, active or not, and returns the count.
	DeleteAll(ctx context.Context) (int64, error)
}
