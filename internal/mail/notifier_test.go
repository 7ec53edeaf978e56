// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package mail_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/mail"
	"github.com/natours/natours/pkg/errutil"
)

var from = mail.Address{Name: "Natours", Email: "hello@natours.dev"}

func newAccount(t *testing.T, name string) *auth.Account {
	t.Helper()
	acct, err := auth.NewAccount(name, "ann@example.com", "digest", auth.RoleUser, time.Now())
	require.NoError(t, err)
	return acct
}

func TestNotifier_SendWelcome(t *testing.T) {
	sender := &recordingSender{}
	n, err := mail.NewNotifier(sender, from)
	require.NoError(t, err)

	require.NoError(t, n.SendWelcome(context.Background(), newAccount(t, "Ann Smith"), "https://natours.dev/me"))

	msg := sender.last(t)
	assert.Equal(t, mail.SubjectWelcome, msg.Subject)
	assert.Equal(t, from, msg.From)
	assert.Equal(t, mail.Address{Name: "Ann Smith", Email: "ann@example.com"}, msg.To)
	assert.Contains(t, msg.HTML, "Hi Ann,")
	assert.Contains(t, msg.HTML, `href="https://natours.dev/me"`)
	assert.Contains(t, msg.HTML, "<title>Welcome to the Natours Family!</title>")
	assert.Contains(t, msg.Text, "Hi Ann,")
	assert.Contains(t, msg.Text, "https://natours.dev/me")
}

func TestNotifier_SendPasswordReset(t *testing.T) {
	sender := &recordingSender{}
	n, err := mail.NewNotifier(sender, from)
	require.NoError(t, err)

	url := "https://natours.dev/api/v1/users/resetPassword/abc123"
	require.NoError(t, n.SendPasswordReset(context.Background(), newAccount(t, "Ann"), url))

	msg := sender.last(t)
	assert.Equal(t, "Your password reset token (valid for only 10 minutes)", msg.Subject)
	assert.Contains(t, msg.HTML, url)
	assert.Contains(t, msg.Text, url)
	assert.Contains(t, msg.Text, "valid for 10 minutes")
}

func TestNotifier_EscapesHTML(t *testing.T) {
	sender := &recordingSender{}
	n, err := mail.NewNotifier(sender, from)
	require.NoError(t, err)

	require.NoError(t, n.SendWelcome(context.Background(), newAccount(t, "<b>Mallory</b> X"), "https://natours.dev/me"))

	msg := sender.last(t)
	assert.NotContains(t, msg.HTML, "<b>Mallory</b>")
	assert.Contains(t, msg.HTML, "&lt;b&gt;Mallory&lt;/b&gt;")
}

func TestNotifier_PropagatesSenderErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	n, err := mail.NewNotifier(sender, from)
	require.NoError(t, err)

	err = n.SendPasswordReset(context.Background(), newAccount(t, "Ann"), "https://x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestNewNotifier_RequiresSender(t *testing.T) {
	_, err := mail.NewNotifier(nil, from)
	errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
}
