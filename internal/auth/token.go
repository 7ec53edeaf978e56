// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Token configuration.
const (
	// DefaultTokenTTL is the bearer token lifetime when none is configured.
	DefaultTokenTTL = 90 * 24 * time.Hour

	// MinSecretLength is the shortest accepted HS256 signing secret.
	MinSecretLength = 32
)

// TokenClaims is the verified content of a bearer token.
type TokenClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer issues and verifies bearer tokens.
type TokenIssuer interface {
	Issue(subject string) (token string, expiresAt time.Time, err error)
	Verify(token string) (*TokenClaims, error)
}

// TokenService issues HS256-signed JWTs. It holds no per-token state.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock overrides the clock used for iat, exp and expiry checks.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService. A zero ttl uses DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("min_length", MinSecretLength).
			Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject.
func (s *TokenService) Issue(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, oops.Code(CodeTokenInvalid).Errorf("token subject cannot be empty")
	}

	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// Expired tokens fail with TOKEN_EXPIRED; every other failure is TOKEN_INVALID.
func (s *TokenService) Verify(token string) (*TokenClaims, error) {
	if token == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("Invalid token. Please log in again!")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeTokenExpired).
				With("cause", err.Error()).
				Errorf("Your token has expired! Please log in again.")
		}
		return nil, oops.Code(CodeTokenInvalid).
			With("cause", err.Error()).
			Errorf("Invalid token. Please log in again!")
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, oops.Code(CodeTokenInvalid).Errorf("Invalid token. Please log in again!")
	}

	return &TokenClaims{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
