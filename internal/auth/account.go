// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is an account's authorization role.
type Role string

// Known roles.
const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Account field constraints.
const (
	MaxNameLength     = 50
	MinPasswordLength = 8
	DefaultPhoto      = "default.jpg"
)

// Account is a user account as persisted by an AccountStore.
//
// Only Service methods mutate credentials, reset tokens and lockout state.
type Account struct {
	ID                  ulid.ULID
	Name                string
	Email               string
	Photo               string
	Role                Role
	PasswordHash        string
	PasswordChangedAt   *time.Time
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time
	Active              bool
	FailedLogins        int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewAccount creates a validated, active Account. An empty role defaults to RoleUser.
func NewAccount(name, email, passwordHash string, role Role, now time.Time) (*Account, error) {
	if role == "" {
		role = RoleUser
	}
	a := &Account{
		ID:           ulid.Make(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		Photo:        DefaultPhoto,
		Role:         role,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// NormalizeEmail lower-cases and trims an email address. Stores compare
// emails in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether a lockout is in effect at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// RecordFailure counts a failed login and starts a lockout once the policy
// threshold is reached. A lockout already in effect is not extended.
func (a *Account) RecordFailure(policy LockoutPolicy, now time.Time) {
	a.FailedLogins++
	if !a.IsLocked(now) {
		a.LockedUntil = policy.LockoutTime(a.FailedLogins, now)
	}
	a.UpdatedAt = now
}

// RecordSuccess clears the failure counter and any lockout.
func (a *Account) RecordSuccess(now time.Time) {
	a.FailedLogins = 0
	a.LockedUntil = nil
	a.UpdatedAt = now
}

// SetPassword replaces the credential digest and stamps PasswordChangedAt.
// The stamp is one second in the past so a token issued in the same second
// as the change is not treated as stale.
func (a *Account) SetPassword(passwordHash string, now time.Time) {
	changed := now.Add(-time.Second)
	a.PasswordHash = passwordHash
	a.PasswordChangedAt = &changed
	a.UpdatedAt = now
}

// PasswordChangedAfter reports whether the password changed after a token
// issued at issuedAt. Tokens carry whole seconds, so the change time is
// truncated before comparing.
//
// Together with the one second back-dating in SetPassword, a token issued up
// to two seconds before a change still counts as current. Only tokens older
// than that are rejected as stale.
func (a *Account) PasswordChangedAfter(issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return a.PasswordChangedAt.Truncate(time.Second).After(issuedAt)
}

// SetResetToken records an outstanding reset token digest and its expiry.
func (a *Account) SetResetToken(hash string, expiresAt time.Time) {
	a.ResetTokenHash = hash
	a.ResetTokenExpiresAt = &expiresAt
}

// ClearResetToken removes any outstanding reset token.
func (a *Account) ClearResetToken() {
	a.ResetTokenHash = ""
	a.ResetTokenExpiresAt = nil
}

// HasResetToken reports whether a reset token is outstanding (expired or not).
func (a *Account) HasResetToken() bool {
	return a.ResetTokenHash != "" && a.ResetTokenExpiresAt != nil
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.PasswordChangedAt = cloneTime(a.PasswordChangedAt)
	c.ResetTokenExpiresAt = cloneTime(a.ResetTokenExpiresAt)
	c.LockedUntil = cloneTime(a.LockedUntil)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// FirstName returns the first word of the account name, used to greet the
// recipient in notifications.
func (a *Account) FirstName() string {
	if fields := strings.Fields(a.Name); len(fields) > 0 {
		return fields[0]
	}
	return a.Name
}

// PublicAccount is the outward-facing view of an Account. It carries no
// credential, reset token or lockout state.
type PublicAccount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
	Role  Role   `json:"role"`
}

// Public returns the sanitized view of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:    a.ID.String(),
		Name:  a.Name,
		Email: a.Email,
		Photo: a.Photo,
		Role:  a.Role,
	}
}

// checkResetPair enforces that the reset digest and its expiry are set together.
func (a *Account) checkResetPair() error {
	if (a.ResetTokenHash == "") != (a.ResetTokenExpiresAt == nil) {
		return oops.Code(CodeValidationFailed).
			With("account_id", a.ID.String()).
			Errorf("reset token digest and expiry must be set together")
	}
	return nil
}
