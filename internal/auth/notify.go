// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import "context"

// Notifier delivers account notifications.
type Notifier interface {
	// SendWelcome greets a newly registered account. url points at the
	// account page.
	SendWelcome(ctx context.Context, acct *Account, url string) error

	// SendPasswordReset delivers reset instructions. url embeds the raw
	// reset token.
	SendPasswordReset(ctx context.Context, acct *Account, url string) error
}

// Auth event names reported to an EventRecorder.
const (
	EventSignUp         = "signup"
	EventLogin          = "login"
	EventLockout        = "lockout"
	EventAuthenticate   = "authenticate"
	EventForgotPassword = "forgot_password"
	EventResetPassword  = "reset_password"
	EventUpdatePassword = "update_password"
	EventWelcomeMail    = "welcome_mail"
)

// Auth event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// EventRecorder counts auth events, typically into metrics.
type EventRecorder interface {
	RecordAuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}
