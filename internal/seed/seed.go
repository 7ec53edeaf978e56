// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package seed loads development accounts from YAML or JSON files and
// imports them into an account store.
package seed

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/natours/natours/internal/auth"
)

// File is the top-level document of a seed file.
type File struct {
	Users []User `json:"users" yaml:"users" jsonschema:"required,minItems=1"`
}

// User is one seeded account. Exactly one of Password and PasswordHash is set.
type User struct {
	Name         string    `json:"name" yaml:"name" jsonschema:"required,minLength=1,maxLength=50"`
	Email        string    `json:"email" yaml:"email" jsonschema:"required,format=email"`
	Role         auth.Role `json:"role,omitempty" yaml:"role" jsonschema:"enum=user,enum=guide,enum=lead-guide,enum=admin"`
	Photo        string    `json:"photo,omitempty" yaml:"photo"`
	Password     string    `json:"password,omitempty" yaml:"password" jsonschema:"minLength=8,description=Plaintext password hashed on import"`
	PasswordHash string    `json:"passwordHash,omitempty" yaml:"passwordHash" jsonschema:"description=Existing argon2id or bcrypt digest stored as-is"`
	Active       *bool     `json:"active,omitempty" yaml:"active"`
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("SEED_INVALID").With("operation", "decode seed data").Wrap(err)
	}
	return &f, nil
}

// LoadFile reads and parses the seed file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return f, nil
}

// Importer turns seed users into accounts and writes them to a store.
type Importer struct {
	accounts auth.AccountStore
	hasher   auth.PasswordHasher
	now      func() time.Time
}

// NewImporter creates an Importer.
func NewImporter(accounts auth.AccountStore, hasher auth.PasswordHasher) *Importer {
	return &Importer{accounts: accounts, hasher: hasher, now: time.Now}
}

// Accounts builds validated accounts from f without touching the store.
func (i *Importer) Accounts(f *File) ([]*auth.Account, error) {
	seen := make(map[string]int, len(f.Users))
	accts := make([]*auth.Account, 0, len(f.Users))
	now := i.now()

	for idx, u := range f.Users {
		email := auth.NormalizeEmail(u.Email)
		if prev, dup := seen[email]; dup {
			return nil, oops.Code("SEED_INVALID").
				With("index", idx).
				With("duplicate_of", prev).
				Errorf("users[%d]: email %s is listed twice", idx, email)
		}
		seen[email] = idx

		hash, err := i.digest(u)
		if err != nil {
			return nil, oops.With("index", idx).With("email", email).Wrap(err)
		}

		acct, err := auth.NewAccount(u.Name, email, hash, u.Role, now)
		if err != nil {
			return nil, oops.Code("SEED_INVALID").With("index", idx).With("email", email).Wrap(err)
		}
		if u.Photo != "" {
			acct.Photo = u.Photo
		}
		if u.Active != nil {
			acct.Active = *u.Active
		}
		accts = append(accts, acct)
	}
	return accts, nil
}

func (i *Importer) digest(u User) (string, error) {
	switch {
	case u.Password != "" && u.PasswordHash != "":
		return "", oops.Code("SEED_INVALID").Errorf("set either password or passwordHash, not both")
	case u.PasswordHash != "":
		if !knownDigest(u.PasswordHash) {
			return "", oops.Code("SEED_INVALID").Errorf("passwordHash is not an argon2id or bcrypt digest")
		}
		return u.PasswordHash, nil
	case u.Password != "":
		hash, err := i.hasher.Hash(u.Password)
		if err != nil {
			return "", oops.Code("SEED_IMPORT_FAILED").With("operation", "hash password").Wrap(err)
		}
		return hash, nil
	default:
		return "", oops.Code("SEED_INVALID").Errorf("password or passwordHash is required")
	}
}

func knownDigest(hash string) bool {
	for _, prefix := range []string{"$argon2id$", "$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}

// Import stores every account in f and returns how many were created.
func (i *Importer) Import(ctx context.Context, f *File) (int, error) {
	accts, err := i.Accounts(f)
	if err != nil {
		return 0, err
	}
	if err := i.accounts.CreateMany(ctx, accts); err != nil {
		return 0, oops.Code("SEED_IMPORT_FAILED").
			With("operation", "create accounts").
			With("count", len(accts)).
			Wrap(err)
	}
	return len(accts), nil
}

// Delete removes every account from the store.
func (i *Importer) Delete(ctx context.Context) (int64, error) {
	n, err := i.accounts.DeleteAll(ctx)
	if err != nil {
		return 0, oops.Code("SEED_DELETE_FAILED").With("operation", "delete accounts").Wrap(err)
	}
	return n, nil
}
