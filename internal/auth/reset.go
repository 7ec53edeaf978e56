// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes  = 32               // 32 bytes = 64 hex chars
	ResetTokenExpiry = 10 * time.Minute // default lifetime
)

// ResetToken is a freshly generated password-reset token. Raw is sent to the
// account holder and never stored; Hash and ExpiresAt are persisted.
type ResetToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// GenerateResetToken creates a random reset token that expires ttl after now.
// A zero ttl uses ResetTokenExpiry.
func GenerateResetToken(now time.Time, ttl time.Duration) (ResetToken, error) {
	if ttl <= 0 {
		ttl = ResetTokenExpiry
	}

	raw := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return ResetToken{}, oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token := hex.EncodeToString(raw)
	return ResetToken{
		Raw:       token,
		Hash:      HashResetToken(token),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// HashResetToken returns the SHA-256 hex digest used to look up a presented
// reset token. The raw token already carries 256 bits of entropy, so no salt
// is applied.
func HashResetToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
