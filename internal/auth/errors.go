// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import "errors"

// ErrNotFound is returned by an AccountStore when no active account matches.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned by an AccountStore when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Error codes for expected failures. Each maps to a fixed HTTP status and its
// message is safe to show to the caller.
const (
	CodeValidationFailed    = "AUTH_VALIDATION_FAILED"
	CodeMissingCredentials  = "AUTH_MISSING_CREDENTIALS"
	CodeEmailTaken          = "AUTH_EMAIL_TAKEN"
	CodeNotAuthenticated    = "AUTH_NOT_AUTHENTICATED"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeTooManyAttempts     = "AUTH_TOO_MANY_ATTEMPTS"
	CodeNoSuchAccount       = "AUTH_NO_SUCH_ACCOUNT"
	CodeForbidden           = "AUTH_FORBIDDEN"
	CodeInvalidResetToken   = "AUTH_INVALID_RESET_TOKEN"
	CodeEmailDeliveryFailed = "AUTH_EMAIL_DELIVERY_FAILED"
)

// Token verification codes.
const (
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenExpired = "TOKEN_EXPIRED"
)

// Codes for unexpected failures. These are never shown to callers verbatim.
const (
	codeSignUpFailed         = "AUTH_SIGNUP_FAILED"
	codeLoginFailed          = "AUTH_LOGIN_FAILED"
	codeAuthenticateFailed   = "AUTH_AUTHENTICATE_FAILED"
	codeForgotPasswordFailed = "AUTH_FORGOT_PASSWORD_FAILED"
	codeResetPasswordFailed  = "AUTH_RESET_PASSWORD_FAILED"
	codeUpdatePasswordFailed = "AUTH_UPDATE_PASSWORD_FAILED"
	codeSessionFailed        = "AUTH_SESSION_FAILED"
)
