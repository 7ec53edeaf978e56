// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package memory provides an in-process auth.AccountStore for development
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/natours/natours/internal/auth"
)

// AccountStore keeps accounts in a map. Accounts are copied on the way in
// and out so callers never share state with the store.
type AccountStore struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.Account
	byEmail map[string]ulid.ULID
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[ulid.ULID]*auth.Account),
		byEmail: make(map[string]ulid.ULID),
	}
}

// FindByEmail implements auth.AccountStore.
func (s *AccountStore) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return s.active(id)
}

// FindByID implements auth.AccountStore.
func (s *AccountStore) FindByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active(id)
}

// FindByResetTokenHash implements auth.AccountStore.
func (s *AccountStore) FindByResetTokenHash(_ context.Context, hash string, now time.Time) (*auth.Account, error) {
	if hash == "" {
		return nil, auth.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acct := range s.byID {
		if !acct.Active || acct.ResetTokenHash != hash {
			continue
		}
		if acct.ResetTokenExpiresAt != nil && acct.ResetTokenExpiresAt.After(now) {
			return acct.Clone(), nil
		}
	}
	return nil, auth.ErrNotFound
}

// Create implements auth.AccountStore.
func (s *AccountStore) Create(_ context.Context, acct *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(acct)
}

// CreateMany implements auth.AccountStore. Nothing is inserted if any
// account conflicts.
func (s *AccountStore) CreateMany(_ context.Context, accts []*auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(accts))
	for _, acct := range accts {
		email := auth.NormalizeEmail(acct.Email)
		if _, dup := seen[email]; dup {
			return oops.With("email", email).Wrap(auth.ErrEmailTaken)
		}
		if _, taken := s.byEmail[email]; taken {
			return oops.With("email", email).Wrap(auth.ErrEmailTaken)
		}
		seen[email] = struct{}{}
	}
	for _, acct := range accts {
		if err := s.insert(acct); err != nil {
			return err
		}
	}
	return nil
}

// Save implements auth.AccountStore.
func (s *AccountStore) Save(_ context.Context, acct *auth.Account, opts auth.SaveOptions) error {
	if opts.Validate {
		if err := acct.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[acct.ID]
	if !ok {
		return oops.With("account_id", acct.ID.String()).Wrap(auth.ErrNotFound)
	}

	email := auth.NormalizeEmail(acct.Email)
	if owner, taken := s.byEmail[email]; taken && owner != acct.ID {
		return oops.With("email", email).Wrap(auth.ErrEmailTaken)
	}

	delete(s.byEmail, current.Email)
	stored := acct.Clone()
	stored.Email = email
	s.byID[acct.ID] = stored
	s.byEmail[email] = acct.ID
	return nil
}

// DeleteAll implements auth.AccountStore.
func (s *AccountStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.byID))
	s.byID = make(map[ulid.ULID]*auth.Account)
	s.byEmail = make(map[string]ulid.ULID)
	return n, nil
}

// Len returns the number of stored accounts, active or not.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *AccountStore) active(id ulid.ULID) (*auth.Account, error) {
	acct, ok := s.byID[id]
	if !ok || !acct.Active {
		return nil, auth.ErrNotFound
	}
	return acct.Clone(), nil
}

// insert requires s.mu held for writing.
func (s *AccountStore) insert(acct *auth.Account) error {
	email := auth.NormalizeEmail(acct.Email)
	if _, taken := s.byEmail[email]; taken {
		return oops.With("email", email).Wrap(auth.ErrEmailTaken)
	}
	if _, exists := s.byID[acct.ID]; exists {
		return oops.With("account_id", acct.ID.String()).Errorf("account already exists")
	}

	stored := acct.Clone()
	stored.Email = email
	s.byID[acct.ID] = stored
	s.byEmail[email] = acct.ID
	return nil
}

var _ auth.AccountStore = (*AccountStore)(nil)
