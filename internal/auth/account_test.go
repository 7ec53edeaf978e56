// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/pkg/errutil"
)

func TestNewAccount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("normalizes and defaults", func(t *testing.T) {
		acct, err := auth.NewAccount("  Ann Smith ", " Ann@Example.COM", "digest", "", now)
		require.NoError(t, err)
		assert.Equal(t, "Ann Smith", acct.Name)
		assert.Equal(t, "ann@example.com", acct.Email)
		assert.Equal(t, auth.RoleUser, acct.Role)
		assert.Equal(t, auth.DefaultPhoto, acct.Photo)
		assert.True(t, acct.Active)
		assert.Zero(t, acct.FailedLogins)
		assert.Nil(t, acct.PasswordChangedAt)
		assert.Equal(t, now, acct.CreatedAt)
	})

	t.Run("rejects invalid fields", func(t *testing.T) {
		tests := []struct {
			name  string
			acct  func() (*auth.Account, error)
			field string
		}{
			{"empty name", func() (*auth.Account, error) { return auth.NewAccount("", "a@x.com", "d", auth.RoleUser, now) }, "name"},
			{"long name", func() (*auth.Account, error) {
				return auth.NewAccount(strings.Repeat("a", 51), "a@x.com", "d", auth.RoleUser, now)
			}, "name"},
			{"bad email", func() (*auth.Account, error) { return auth.NewAccount("Ann", "nope", "d", auth.RoleUser, now) }, "email"},
			{"missing digest", func() (*auth.Account, error) { return auth.NewAccount("Ann", "a@x.com", "", auth.RoleUser, now) }, "password"},
			{"unknown role", func() (*auth.Account, error) { return auth.NewAccount("Ann", "a@x.com", "d", "root", now) }, "role"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := tt.acct()
				errutil.AssertErrorCode(t, err, auth.CodeValidationFailed)
				fields := fieldErrors(t, err)
				assert.Contains(t, fields, tt.field)
			})
		}
	})
}

func TestAccount_Validate_ResetPair(t *testing.T) {
	acct, err := auth.NewAccount("Ann", "a@x.com", "digest", auth.RoleUser, time.Now())
	require.NoError(t, err)

	acct.ResetTokenHash = "digest"
	errutil.AssertErrorCode(t, acct.Validate(), auth.CodeValidationFailed)

	acct.SetResetToken("digest", time.Now().Add(time.Minute))
	assert.NoError(t, acct.Validate())
	assert.True(t, acct.HasResetToken())

	acct.ClearResetToken()
	assert.NoError(t, acct.Validate())
	assert.False(t, acct.HasResetToken())
}

func TestAccount_PasswordChangedAfter(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acct := &auth.Account{}

	assert.False(t, acct.PasswordChangedAfter(issued), "never changed")

	acct.SetPassword("new", issued.Add(500*time.Millisecond))
	assert.False(t, acct.PasswordChangedAfter(issued), "changed within the issuing second")

	acct.SetPassword("new", issued.Add(1900*time.Millisecond))
	assert.False(t, acct.PasswordChangedAfter(issued), "back-dated stamp falls in the issuing second")

	acct.SetPassword("newer", issued.Add(2*time.Second))
	assert.True(t, acct.PasswordChangedAfter(issued))
	require.NotNil(t, acct.PasswordChangedAt)
	assert.Equal(t, issued.Add(time.Second), *acct.PasswordChangedAt)
}

func TestAccount_Public(t *testing.T) {
	acct, err := auth.NewAccount("Ann Smith", "ann@x.com", "secret-digest", auth.RoleGuide, time.Now())
	require.NoError(t, err)
	acct.SetResetToken("reset-digest", time.Now().Add(time.Minute))
	acct.FailedLogins = 3

	body, err := json.Marshal(acct.Public())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, acct.ID.String(), out["id"])
	assert.Equal(t, "guide", out["role"])
	assert.Len(t, out, 5)
	assert.NotContains(t, string(body), "secret-digest")
	assert.NotContains(t, string(body), "reset-digest")
}

func TestAccount_CloneIsDeep(t *testing.T) {
	until := time.Now()
	acct := &auth.Account{LockedUntil: &until}
	c := acct.Clone()
	*c.LockedUntil = until.Add(time.Hour)
	assert.Equal(t, until, *acct.LockedUntil)
}

func TestAccount_FirstName(t *testing.T) {
	assert.Equal(t, "Ann", (&auth.Account{Name: "Ann Smith"}).FirstName())
	assert.Equal(t, "", (&auth.Account{}).FirstName())
}

func TestRole_Valid(t *testing.T) {
	for _, r := range auth.Roles {
		assert.True(t, r.Valid(), string(r))
	}
	assert.False(t, auth.Role("root").Valid())
}

func TestPasswordChange_Validate(t *testing.T) {
	assert.NoError(t, auth.PasswordChange{Password: "secret123", ConfirmPassword: "secret123"}.Validate())

	err := auth.PasswordChange{Password: "secret123", ConfirmPassword: ""}.Validate()
	errutil.AssertErrorCode(t, err, auth.CodeValidationFailed)
	assert.Equal(t, "Please confirm your password.", fieldErrors(t, err)["confirmPassword"])
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	fields, ok := oopsErr.Context()["fields"].(map[string]string)
	require.True(t, ok, "expected field messages in error context")
	return fields
}
