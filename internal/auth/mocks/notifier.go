// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/natours/natours/internal/auth"
)

// MockNotifier is a mock implementation of auth.Notifier.
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a MockNotifier that asserts its expectations when
// the test ends.
func NewMockNotifier(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockNotifier) SendWelcome(ctx context.Context, acct *auth.Account, url string) error {
	ret := m.Called(ctx, acct, url)
	return ret.Error(0)
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, acct *auth.Account, url string) error {
	ret := m.Called(ctx, acct, url)
	return ret.Error(0)
}

var _ auth.Notifier = (*MockNotifier)(nil)
