// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package postgres implements auth.AccountStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/natours/natours/internal/auth"
)

// DB is the subset of *pgxpool.Pool used by AccountRepository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// AccountRepository implements auth.AccountStore using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const selectAccount = `
	SELECT id, name, email, photo, role, password_hash, password_changed_at,
	       reset_token_hash, reset_token_expires_at, active, failed_logins,
	       locked_until, created_at, updated_at
	FROM accounts
`

var accountColumns = []string{
	"id", "name", "email", "photo", "role", "password_hash", "password_changed_at",
	"reset_token_hash", "reset_token_expires_at", "active", "failed_logins",
	"locked_until", "created_at", "updated_at",
}

// FindByEmail retrieves an active account by email (case-insensitive).
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+`WHERE LOWER(email) = LOWER($1) AND active`, auth.NormalizeEmail(email))

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return acct, nil
}

// FindByID retrieves an active account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, selectAccount+`WHERE id = $1 AND active`, id.String())

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// FindByResetTokenHash retrieves the active account holding an unexpired reset digest.
func (r *AccountRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*auth.Account, error) {
	if hash == "" {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	row := r.db.QueryRow(ctx,
		selectAccount+`WHERE reset_token_hash = $1 AND reset_token_expires_at > $2 AND active`,
		hash, now)

	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_RESET_TOKEN_FAILED").
			With("operation", "get account by reset token").
			Wrap(err)
	}
	return acct, nil
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, acct *auth.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (
			id, name, email, photo, role, password_hash, password_changed_at,
			reset_token_hash, reset_token_expires_at, active, failed_logins,
			locked_until, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, accountValues(acct)...)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_EMAIL_TAKEN").
				With("email", acct.Email).
				Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("email", acct.Email).
			Wrap(err)
	}
	return nil
}

// Save updates every mutable column of an existing account.
func (r *AccountRepository) Save(ctx context.Context, acct *auth.Account, opts auth.SaveOptions) error {
	if opts.Validate {
		if err := acct.Validate(); err != nil {
			return err
		}
	}

	result, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			name = $2,
			email = $3,
			photo = $4,
			role = $5,
			password_hash = $6,
			password_changed_at = $7,
			reset_token_hash = $8,
			reset_token_expires_at = $9,
			active = $10,
			failed_logins = $11,
			locked_until = $12,
			updated_at = $13
		WHERE id = $1
	`,
		acct.ID.String(),
		acct.Name,
		auth.NormalizeEmail(acct.Email),
		acct.Photo,
		string(acct.Role),
		acct.PasswordHash,
		acct.PasswordChangedAt,
		nullString(acct.ResetTokenHash),
		acct.ResetTokenExpiresAt,
		acct.Active,
		acct.FailedLogins,
		acct.LockedUntil,
		acct.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_EMAIL_TAKEN").
				With("email", acct.Email).
				Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update account").
			With("id", acct.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", acct.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// CreateMany bulk-loads accounts with COPY.
func (r *AccountRepository) CreateMany(ctx context.Context, accts []*auth.Account) error {
	if len(accts) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(accts))
	for _, acct := range accts {
		rows = append(rows, accountValues(acct))
	}

	n, err := r.db.CopyFrom(ctx, pgx.Identifier{"accounts"}, accountColumns, pgx.CopyFromRows(rows))
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("ACCOUNT_BULK_CREATE_FAILED").
			With("operation", "copy accounts").
			With("count", len(accts)).
			Wrap(err)
	}
	if n != int64(len(accts)) {
		return oops.Code("ACCOUNT_BULK_CREATE_FAILED").
			With("expected", len(accts)).
			With("copied", n).
			Errorf("copied %d of %d accounts", n, len(accts))
	}
	return nil
}

// DeleteAll removes every account.
func (r *AccountRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM accounts`)
	if err != nil {
		return 0, oops.Code("ACCOUNT_DELETE_ALL_FAILED").
			With("operation", "delete accounts").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func accountValues(acct *auth.Account) []any {
	return []any{
		acct.ID.String(),
		acct.Name,
		auth.NormalizeEmail(acct.Email),
		acct.Photo,
		string(acct.Role),
		acct.PasswordHash,
		acct.PasswordChangedAt,
		nullString(acct.ResetTokenHash),
		acct.ResetTokenExpiresAt,
		acct.Active,
		acct.FailedLogins,
		acct.LockedUntil,
		acct.CreatedAt,
		acct.UpdatedAt,
	}
}

// scanAccount scans a single row into an Account.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr          string
		role           string
		resetTokenHash *string
		acct           auth.Account
	)

	err := row.Scan(
		&idStr,
		&acct.Name,
		&acct.Email,
		&acct.Photo,
		&role,
		&acct.PasswordHash,
		&acct.PasswordChangedAt,
		&resetTokenHash,
		&acct.ResetTokenExpiresAt,
		&acct.Active,
		&acct.FailedLogins,
		&acct.LockedUntil,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	acct.ID = id
	acct.Role = auth.Role(role)
	if resetTokenHash != nil {
		acct.ResetTokenHash = *resetTokenHash
	}
	return &acct, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ auth.AccountStore = (*AccountRepository)(nil)
