// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package mongodb implements auth.AccountStore on MongoDB. Documents use the
// field names of the Natours "users" collection, but _id holds a ULID
// string. Documents keyed by an ObjectId are rejected with
// ACCOUNT_INVALID_ID and must be re-imported with natours seed.
package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/natours/natours/internal/auth"
)

// CollectionName is the collection accounts are stored in.
const CollectionName = "users"

// accountDoc is the BSON shape of an account.
type accountDoc struct {
	ID                   string     `bson:"_id"`
	Name                 string     `bson:"name"`
	Email                string     `bson:"email"`
	Photo                string     `bson:"photo"`
	Role                 string     `bson:"role"`
	Password             string     `bson:"password"`
	PasswordChangedAt    *time.Time `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   string     `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `bson:"passwordResetExpires,omitempty"`
	Active               bool       `bson:"active"`
	LoginAttempts        int        `bson:"loginAttempts"`
	WaitingTime          *time.Time `bson:"waitingTime,omitempty"`
	CreatedAt            time.Time  `bson:"createdAt"`
	UpdatedAt            time.Time  `bson:"updatedAt"`
}

// AccountRepository implements auth.AccountStore using MongoDB.
type AccountRepository struct {
	coll *mongo.Collection
}

// NewAccountRepository creates a repository over the users collection of db.
func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique email index and the reset digest index.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_key"),
		},
		{
			Keys:    bson.D{{Key: "passwordResetToken", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("users_reset_token_idx"),
		},
	})
	if err != nil {
		return oops.Code("ACCOUNT_INDEX_FAILED").
			With("operation", "create indexes").
			With("collection", CollectionName).
			Wrap(err)
	}
	return nil
}

// activeOnly matches documents whose active flag is not explicitly false.
func activeOnly(filter bson.M) bson.M {
	filter["active"] = bson.M{"$ne": false}
	return filter
}

// FindByEmail retrieves an active account by email (case-insensitive).
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	acct, err := r.findOne(ctx, activeOnly(bson.M{"email": auth.NormalizeEmail(email)}))
	if errors.Is(err, mongo.ErrNoDocuments) {
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
	acct, err := r.findOne(ctx, activeOnly(bson.M{"_id": id.String()}))
	if errors.Is(err, mongo.ErrNoDocuments) {
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

	acct, err := r.findOne(ctx, activeOnly(bson.M{
		"passwordResetToken":   hash,
		"passwordResetExpires": bson.M{"$gt": now},
	}))
	if errors.Is(err, mongo.ErrNoDocuments) {
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
	if _, err := r.coll.InsertOne(ctx, toDoc(acct)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
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

// Save replaces the stored document of an existing account.
func (r *AccountRepository) Save(ctx context.Context, acct *auth.Account, opts auth.SaveOptions) error {
	if opts.Validate {
		if err := acct.Validate(); err != nil {
			return err
		}
	}

	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": acct.ID.String()}, toDoc(acct))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return oops.Code("ACCOUNT_EMAIL_TAKEN").
				With("email", acct.Email).
				Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "replace account").
			With("id", acct.ID.String()).
			Wrap(err)
	}
	if result.MatchedCount == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", acct.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// CreateMany inserts accounts in one ordered batch.
func (r *AccountRepository) CreateMany(ctx context.Context, accts []*auth.Account) error {
	if len(accts) == 0 {
		return nil
	}

	docs := make([]any, 0, len(accts))
	for _, acct := range accts {
		docs = append(docs, toDoc(acct))
	}

	if _, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return oops.Code("ACCOUNT_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken)
		}
		return oops.Code("ACCOUNT_BULK_CREATE_FAILED").
			With("operation", "insert accounts").
			With("count", len(accts)).
			Wrap(err)
	}
	return nil
}

// DeleteAll removes every account.
func (r *AccountRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, oops.Code("ACCOUNT_DELETE_ALL_FAILED").
			With("operation", "delete accounts").
			Wrap(err)
	}
	return result.DeletedCount, nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*auth.Account, error) {
	var doc accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, err
	}
	return fromDoc(doc)
}

func toDoc(acct *auth.Account) accountDoc {
	return accountDoc{
		ID:                   acct.ID.String(),
		Name:                 acct.Name,
		Email:                auth.NormalizeEmail(acct.Email),
		Photo:                acct.Photo,
		Role:                 string(acct.Role),
		Password:             acct.PasswordHash,
		PasswordChangedAt:    acct.PasswordChangedAt,
		PasswordResetToken:   acct.ResetTokenHash,
		PasswordResetExpires: acct.ResetTokenExpiresAt,
		Active:               acct.Active,
		LoginAttempts:        acct.FailedLogins,
		WaitingTime:          acct.LockedUntil,
		CreatedAt:            acct.CreatedAt,
		UpdatedAt:            acct.UpdatedAt,
	}
}

func fromDoc(doc accountDoc) (*auth.Account, error) {
	id, err := ulid.Parse(doc.ID)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("id", doc.ID).
			Wrap(err)
	}
	return &auth.Account{
		ID:                  id,
		Name:                doc.Name,
		Email:               doc.Email,
		Photo:               doc.Photo,
		Role:                auth.Role(doc.Role),
		PasswordHash:        doc.Password,
		PasswordChangedAt:   utc(doc.PasswordChangedAt),
		ResetTokenHash:      doc.PasswordResetToken,
		ResetTokenExpiresAt: utc(doc.PasswordResetExpires),
		Active:              doc.Active,
		FailedLogins:        doc.LoginAttempts,
		LockedUntil:         utc(doc.WaitingTime),
		CreatedAt:           doc.CreatedAt.UTC(),
		UpdatedAt:           doc.UpdatedAt.UTC(),
	}, nil
}

// utc normalizes decoded BSON dates, which come back in local time.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var _ auth.AccountStore = (*AccountRepository)(nil)
