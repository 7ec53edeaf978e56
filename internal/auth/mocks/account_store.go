// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/natours/natours/internal/auth"
)

// MockAccountStore is a mock implementation of auth.AccountStore.
type MockAccountStore struct {
	mock.Mock
}

// NewMockAccountStore creates a MockAccountStore that asserts its
// expectations when the test ends.
func NewMockAccountStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAccountStore {
	m := &MockAccountStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	ret := m.Called(ctx, email)
	return accountResult(ret)
}

func (m *MockAccountStore) FindByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ret := m.Called(ctx, id)
	return accountResult(ret)
}

func (m *MockAccountStore) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*auth.Account, error) {
	ret := m.Called(ctx, hash, now)
	return accountResult(ret)
}

func (m *MockAccountStore) Create(ctx context.Context, acct *auth.Account) error {
	ret := m.Called(ctx, acct)
	return ret.Error(0)
}

func (m *MockAccountStore) Save(ctx context.Context, acct *auth.Account, opts auth.SaveOptions) error {
	ret := m.Called(ctx, acct, opts)
	return ret.Error(0)
}

func (m *MockAccountStore) CreateMany(ctx context.Context, accts []*auth.Account) error {
	ret := m.Called(ctx, accts)
	return ret.Error(0)
}

func (m *MockAccountStore) DeleteAll(ctx context.Context) (int64, error) {
	ret := m.Called(ctx)
	var n int64
	if v, ok := ret.Get(0).(int64); ok {
		n = v
	}
	return n, ret.Error(1)
}

func accountResult(ret mock.Arguments) (*auth.Account, error) {
	var acct *auth.Account
	if v := ret.Get(0); v != nil {
		acct = v.(*auth.Account)
	}
	return acct, ret.Error(1)
}

var _ auth.AccountStore = (*MockAccountStore)(nil)
