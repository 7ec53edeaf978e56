// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package auth provides account authentication and recovery for Natours.
//
// # Domain Types
//
// Accounts should be created with NewAccount, which normalizes the email,
// applies the default role and photo, and validates the result. Credential,
// reset-token and lockout fields are changed through Account methods
// (SetPassword, SetResetToken, RecordFailure, RecordSuccess) so that paired
// fields stay consistent. PublicAccount is the only outward representation.
//
// # Primitives
//
//   - Argon2idHasher - argon2id password digests, with bcrypt verification for imported accounts
//   - TokenService - HS256 bearer tokens carrying sub, iat and exp
//   - GenerateResetToken / HashResetToken - single-use reset tokens stored as SHA-256 digests
//   - LockoutPolicy - failed-login threshold and lockout window
//
// # Service
//
// Service coordinates sign-up, login, token authentication, role
// authorization, forgot/reset password and password change on top of an
// AccountStore and a Notifier. It is created with NewService, which rejects
// missing dependencies. Errors carry oops codes (see the Code* constants);
// those codes identify failures that are safe to report to the caller.
package auth
