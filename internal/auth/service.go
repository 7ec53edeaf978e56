// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/natours/natours/pkg/errutil"
)

// DefaultWelcomeMailTimeout bounds the background welcome mail delivery.
const DefaultWelcomeMailTimeout = 30 * time.Second

// Deps are the collaborators of a Service.
type Deps struct {
	Accounts AccountStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Notifier Notifier
	Logger   *slog.Logger
	Events   EventRecorder // optional
}

// Config holds the immutable tuning of a Service. Zero values use defaults.
type Config struct {
	Lockout            LockoutPolicy
	ResetTokenTTL      time.Duration
	WelcomeMailTimeout time.Duration
	Now                func() time.Time
}

// Session is the result of a successful sign-in.
type Session struct {
	Account   *Account
	Token     string
	ExpiresAt time.Time
}

// Service implements sign-up, login, bearer token authentication, role
// authorization and password recovery.
type Service struct {
	accounts AccountStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	notifier Notifier
	logger   *slog.Logger
	events   EventRecorder

	lockout      LockoutPolicy
	resetTTL     time.Duration
	welcomeLimit time.Duration
	now          func() time.Time

	background sync.WaitGroup
}

// NewService creates a Service. All dependencies except Events are required.
func NewService(deps Deps, cfg Config) (*Service, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("account store is required")
	case deps.Hasher == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	case deps.Tokens == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("token issuer is required")
	case deps.Notifier == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("notifier is required")
	case deps.Logger == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("logger is required")
	}

	events := deps.Events
	if events == nil {
		events = nopRecorder{}
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = ResetTokenExpiry
	}
	if cfg.WelcomeMailTimeout <= 0 {
		cfg.WelcomeMailTimeout = DefaultWelcomeMailTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		accounts:     deps.Accounts,
		hasher:       deps.Hasher,
		tokens:       deps.Tokens,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		events:       events,
		lockout:      cfg.Lockout.withDefaults(),
		resetTTL:     cfg.ResetTokenTTL,
		welcomeLimit: cfg.WelcomeMailTimeout,
		now:          cfg.Now,
	}, nil
}

// Wait blocks until background notifications started by SignUp finish.
func (s *Service) Wait() {
	s.background.Wait()
}

// SignUp registers an account and signs it in. The welcome notification is
// sent in the background; its failure is logged and does not affect the
// result.
func (s *Service) SignUp(ctx context.Context, in SignUpInput, welcomeURL string) (*Session, error) {
	if err := in.Validate(); err != nil {
		s.events.RecordAuthEvent(EventSignUp, OutcomeFailure)
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code(codeSignUpFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	acct, err := NewAccount(in.Name, in.Email, hash, in.Role, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.events.RecordAuthEvent(EventSignUp, OutcomeFailure)
			return nil, oops.Code(CodeEmailTaken).
				With("email", acct.Email).
				Errorf("Duplicate field value: %s. Please use another value!", acct.Email)
		}
		return nil, oops.Code(codeSignUpFailed).
			With("operation", "create account").
			Wrap(err)
	}

	session, err := s.issue(acct, codeSignUpFailed)
	if err != nil {
		return nil, err
	}

	s.sendWelcome(ctx, acct.Clone(), welcomeURL)
	s.events.RecordAuthEvent(EventSignUp, OutcomeSuccess)
	s.logger.InfoContext(ctx, "account created", "account_id", acct.ID.String(), "role", string(acct.Role))
	return session, nil
}

func (s *Service) sendWelcome(ctx context.Context, acct *Account, url string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.welcomeLimit)
		defer cancel()

		if err := s.notifier.SendWelcome(mailCtx, acct, url); err != nil {
			s.events.RecordAuthEvent(EventWelcomeMail, OutcomeFailure)
			errutil.LogError(s.logger, "welcome mail failed",
				oops.With("account_id", acct.ID.String()).Wrap(err))
			return
		}
		s.events.RecordAuthEvent(EventWelcomeMail, OutcomeSuccess)
	}()
}

// Login verifies credentials and signs the account in.
//
// A wrong password counts against the account; once the lockout threshold is
// reached the attempt fails with AUTH_TOO_MANY_ATTEMPTS, and so do correct
// passwords until the lockout expires.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, oops.Code(CodeMissingCredentials).Errorf("Please provide email and password!")
	}

	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.events.RecordAuthEvent(EventLogin, OutcomeFailure)
			return nil, oops.Code(CodeNoSuchAccount).
				Errorf("Please make sure you have an account! Go ahead to /signup")
		}
		return nil, oops.Code(codeLoginFailed).
			With("operation", "find account by email").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(password, acct.PasswordHash)
	if err != nil {
		return nil, oops.Code(codeLoginFailed).
			With("operation", "verify password").
			With("account_id", acct.ID.String()).
			Wrap(err)
	}

	now := s.now()
	if !valid {
		return nil, s.recordFailedLogin(ctx, acct, now)
	}

	if acct.IsLocked(now) {
		s.events.RecordAuthEvent(EventLogin, OutcomeFailure)
		return nil, s.tooManyAttempts(acct)
	}

	acct.RecordSuccess(now)
	if s.hasher.NeedsUpgrade(acct.PasswordHash) {
		upgraded, hashErr := s.hasher.Hash(password)
		if hashErr != nil {
			// The old digest still verifies; retry the upgrade on the next login.
			errutil.LogError(s.logger, "failed to upgrade password hash",
				oops.With("account_id", acct.ID.String()).Wrap(hashErr))
		} else {
			acct.PasswordHash = upgraded
		}
	}
	if err := s.accounts.Save(ctx, acct, SaveOptions{}); err != nil {
		// Login succeeds even if the counter reset is lost.
		errutil.LogError(s.logger, "failed to clear login failures",
			oops.With("account_id", acct.ID.String()).Wrap(err))
	}

	session, err := s.issue(acct, codeLoginFailed)
	if err != nil {
		return nil, err
	}
	s.events.RecordAuthEvent(EventLogin, OutcomeSuccess)
	return session, nil
}

func (s *Service) recordFailedLogin(ctx context.Context, acct *Account, now time.Time) error {
	wasLocked := acct.IsLocked(now)
	acct.RecordFailure(s.lockout, now)
	if err := s.accounts.Save(ctx, acct, SaveOptions{}); err != nil {
		return oops.Code(codeLoginFailed).
			With("operation", "record failed login").
			With("account_id", acct.ID.String()).
			Wrap(err)
	}

	s.events.RecordAuthEvent(EventLogin, OutcomeFailure)
	if s.lockout.Exceeded(acct.FailedLogins) {
		if !wasLocked {
			s.events.RecordAuthEvent(EventLockout, OutcomeSuccess)
			s.logger.WarnContext(ctx, "account locked",
				"account_id", acct.ID.String(),
				"attempts", acct.FailedLogins,
				"locked_until", acct.LockedUntil)
		}
		return s.tooManyAttempts(acct)
	}
	return oops.Code(CodeInvalidCredentials).Errorf("Incorrect email or password")
}

func (s *Service) tooManyAttempts(acct *Account) error {
	b := oops.Code(CodeTooManyAttempts).With("attempts", acct.FailedLogins)
	if acct.LockedUntil != nil {
		b = b.With("locked_until", *acct.LockedUntil)
	}
	return b.Errorf("You tried %d times with invalid credentials, try again in %d minutes",
		acct.FailedLogins, int(s.lockout.Duration/time.Minute))
}

// Authenticate resolves a bearer token to its account. Every failure is
// AUTH_NOT_AUTHENTICATED except store errors.
func (s *Service) Authenticate(ctx context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, oops.Code(CodeNotAuthenticated).
			Errorf("You are not logged in! Please log in to get access.")
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.events.RecordAuthEvent(EventAuthenticate, OutcomeFailure)
		reason := errutil.Code(err)
		if reason == CodeTokenExpired {
			return nil, oops.Code(CodeNotAuthenticated).
				With("reason", reason).
				Errorf("Your token has expired! Please log in again.")
		}
		return nil, oops.Code(CodeNotAuthenticated).
			With("reason", CodeTokenInvalid).
			Errorf("Invalid token. Please log in again!")
	}

	id, err := ulid.ParseStrict(claims.Subject)
	if err != nil {
		s.events.RecordAuthEvent(EventAuthenticate, OutcomeFailure)
		return nil, oops.Code(CodeNotAuthenticated).
			With("reason", CodeTokenInvalid).
			Errorf("Invalid token. Please log in again!")
	}

	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.events.RecordAuthEvent(EventAuthenticate, OutcomeFailure)
			return nil, oops.Code(CodeNotAuthenticated).
				With("account_id", id.String()).
				Errorf("The user belonging to this token no longer exists.")
		}
		return nil, oops.Code(codeAuthenticateFailed).
			With("operation", "find account by id").
			With("account_id", id.String()).
			Wrap(err)
	}

	if acct.PasswordChangedAfter(claims.IssuedAt) {
		s.events.RecordAuthEvent(EventAuthenticate, OutcomeFailure)
		return nil, oops.Code(CodeNotAuthenticated).
			With("account_id", id.String()).
			Errorf("User recently changed password! Please log in again.")
	}

	s.events.RecordAuthEvent(EventAuthenticate, OutcomeSuccess)
	return acct, nil
}

// TryAuthenticate is Authenticate without failure: it returns (nil, false)
// whenever the token does not resolve to a current account.
func (s *Service) TryAuthenticate(ctx context.Context, token string) (*Account, bool) {
	if token == "" {
		return nil, false
	}
	acct, err := s.Authenticate(ctx, token)
	if err != nil {
		if errutil.Code(err) != CodeNotAuthenticated {
			errutil.LogError(s.logger, "soft authentication failed", err)
		}
		return nil, false
	}
	return acct, true
}

// Authorize fails with AUTH_FORBIDDEN unless acct holds one of roles.
func (s *Service) Authorize(acct *Account, roles ...Role) error {
	if acct == nil {
		return oops.Code(CodeNotAuthenticated).
			Errorf("You are not logged in! Please log in to get access.")
	}
	if !slices.Contains(roles, acct.Role) {
		return oops.Code(CodeForbidden).
			With("account_id", acct.ID.String()).
			With("role", string(acct.Role)).
			Errorf("You do not have permission to perform this action")
	}
	return nil
}

// ForgotPassword issues a reset token for email and delivers it through the
// notifier. resetURL builds the link from the raw token. If delivery fails
// the stored token is cleared again.
func (s *Service) ForgotPassword(ctx context.Context, email string, resetURL func(rawToken string) string) error {
	if strings.TrimSpace(email) == "" {
		return oops.Code(CodeNoSuchAccount).Errorf("There is no user with that email address.")
	}

	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.events.RecordAuthEvent(EventForgotPassword, OutcomeFailure)
			return oops.Code(CodeNoSuchAccount).Errorf("There is no user with that email address.")
		}
		return oops.Code(codeForgotPasswordFailed).
			With("operation", "find account by email").
			Wrap(err)
	}

	tok, err := GenerateResetToken(s.now(), s.resetTTL)
	if err != nil {
		return oops.Code(codeForgotPasswordFailed).
			With("operation", "generate reset token").
			Wrap(err)
	}

	acct.SetResetToken(tok.Hash, tok.ExpiresAt)
	if err := s.accounts.Save(ctx, acct, SaveOptions{}); err != nil {
		return oops.Code(codeForgotPasswordFailed).
			With("operation", "store reset token").
			With("account_id", acct.ID.String()).
			Wrap(err)
	}

	if err := s.notifier.SendPasswordReset(ctx, acct, resetURL(tok.Raw)); err != nil {
		errutil.LogError(s.logger, "password reset mail failed",
			oops.With("account_id", acct.ID.String()).Wrap(err))

		acct.ClearResetToken()
		if saveErr := s.accounts.Save(ctx, acct, SaveOptions{}); saveErr != nil {
			errutil.LogError(s.logger, "failed to roll back reset token",
				oops.With("account_id", acct.ID.String()).Wrap(saveErr))
		}

		s.events.RecordAuthEvent(EventForgotPassword, OutcomeFailure)
		return oops.Code(CodeEmailDeliveryFailed).
			With("account_id", acct.ID.String()).
			With("cause", err.Error()).
			Errorf("There was an error sending the email. Try again later!")
	}

	s.events.RecordAuthEvent(EventForgotPassword, OutcomeSuccess)
	s.logger.InfoContext(ctx, "password reset requested", "account_id", acct.ID.String())
	return nil
}

// ResetPassword sets a new password using a reset token and signs the account
// in. The token is consumed.
func (s *Service) ResetPassword(ctx context.Context, rawToken, password, confirm string) (*Session, error) {
	now := s.now()

	var acct *Account
	if rawToken != "" {
		found, err := s.accounts.FindByResetTokenHash(ctx, HashResetToken(rawToken), now)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, oops.Code(codeResetPasswordFailed).
				With("operation", "find account by reset token").
				Wrap(err)
		}
		acct = found
	}
	if acct == nil {
		s.events.RecordAuthEvent(EventResetPassword, OutcomeFailure)
		return nil, oops.Code(CodeInvalidResetToken).Errorf("Token is invalid or has expired")
	}

	if err := (PasswordChange{Password: password, ConfirmPassword: confirm}).Validate(); err != nil {
		s.events.RecordAuthEvent(EventResetPassword, OutcomeFailure)
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code(codeResetPasswordFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	acct.SetPassword(hash, now)
	acct.ClearResetToken()
	acct.RecordSuccess(now)
	if err := s.save(ctx, acct, codeResetPasswordFailed); err != nil {
		return nil, err
	}

	session, err := s.issue(acct, codeResetPasswordFailed)
	if err != nil {
		return nil, err
	}
	s.events.RecordAuthEvent(EventResetPassword, OutcomeSuccess)
	s.logger.InfoContext(ctx, "password reset", "account_id", acct.ID.String())
	return session, nil
}

// UpdatePassword changes the password of a signed-in account after checking
// its current password, and issues a fresh token.
func (s *Service) UpdatePassword(ctx context.Context, id ulid.ULID, current, password, confirm string) (*Session, error) {
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeNotAuthenticated).
				With("account_id", id.String()).
				Errorf("The user belonging to this token no longer exists.")
		}
		return nil, oops.Code(codeUpdatePasswordFailed).
			With("operation", "find account by id").
			With("account_id", id.String()).
			Wrap(err)
	}

	valid, err := s.hasher.Verify(current, acct.PasswordHash)
	if err != nil {
		return nil, oops.Code(codeUpdatePasswordFailed).
			With("operation", "verify password").
			With("account_id", id.String()).
			Wrap(err)
	}
	if !valid {
		s.events.RecordAuthEvent(EventUpdatePassword, OutcomeFailure)
		return nil, oops.Code(CodeInvalidCredentials).Errorf("Your current password is wrong.")
	}

	if err := (PasswordChange{Password: password, ConfirmPassword: confirm}).Validate(); err != nil {
		s.events.RecordAuthEvent(EventUpdatePassword, OutcomeFailure)
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code(codeUpdatePasswordFailed).
			With("operation", "hash password").
			Wrap(err)
	}

	acct.SetPassword(hash, s.now())
	if err := s.save(ctx, acct, codeUpdatePasswordFailed); err != nil {
		return nil, err
	}

	session, err := s.issue(acct, codeUpdatePasswordFailed)
	if err != nil {
		return nil, err
	}
	s.events.RecordAuthEvent(EventUpdatePassword, OutcomeSuccess)
	s.logger.InfoContext(ctx, "password updated", "account_id", acct.ID.String())
	return session, nil
}

// Account returns the active account with the given id.
func (s *Service) Account(ctx context.Context, id ulid.ULID) (*Account, error) {
	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeNoSuchAccount).
				With("account_id", id.String()).
				Errorf("No user found with that ID")
		}
		return nil, oops.Code(codeSessionFailed).
			With("operation", "find account by id").
			With("account_id", id.String()).
			Wrap(err)
	}
	return acct, nil
}

// save persists a validated account. Validation failures keep their own code.
func (s *Service) save(ctx context.Context, acct *Account, code string) error {
	if err := acct.Validate(); err != nil {
		return err
	}
	if err := s.accounts.Save(ctx, acct, SaveOptions{Validate: true}); err != nil {
		return oops.Code(code).
			With("operation", "save account").
			With("account_id", acct.ID.String()).
			Wrap(err)
	}
	return nil
}

func (s *Service) issue(acct *Account, code string) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(acct.ID.String())
	if err != nil {
		return nil, oops.Code(code).
			With("operation", "issue token").
			With("account_id", acct.ID.String()).
			Wrap(err)
	}
	return &Session{Account: acct, Token: token, ExpiresAt: expiresAt}, nil
}
