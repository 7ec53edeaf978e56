// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package httpapi exposes the auth service over HTTP using gin.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/natours/natours/internal/auth"
)

// Route prefixes.
const (
	APIPrefix   = "/api"
	UsersPrefix = "/api/v1/users"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultBodyLimit  = 10 * 1024
	DefaultRateLimit  = 80
	DefaultRateWindow = time.Hour
	DefaultCookieTTL  = 90 * 24 * time.Hour
)

// AuthService is the subset of *auth.Service the handlers depend on.
type AuthService interface {
	SignUp(ctx context.Context, in auth.SignUpInput, welcomeURL string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Authenticate(ctx context.Context, token string) (*auth.Account, error)
	TryAuthenticate(ctx context.Context, token string) (*auth.Account, bool)
	Authorize(acct *auth.Account, roles ...auth.Role) error
	ForgotPassword(ctx context.Context, email string, resetURL func(rawToken string) string) error
	ResetPassword(ctx context.Context, rawToken, password, confirm string) (*auth.Session, error)
	UpdatePassword(ctx context.Context, id ulid.ULID, current, password, confirm string) (*auth.Session, error)
	Account(ctx context.Context, id ulid.ULID) (*auth.Account, error)
}

// RequestMetrics receives per-request measurements.
type RequestMetrics interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
	RecordRateLimited()
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, int, time.Duration) {}
func (nopMetrics) RecordRateLimited()                                {}

// Options configures the router.
type Options struct {
	Logger *slog.Logger
	// Production hides non-operational error detail and marks cookies Secure.
	Production bool
	// PublicURL overrides the scheme and host used in mailed links.
	PublicURL      string
	CookieTTL      time.Duration
	BodyLimit      int64
	CORSOrigins    []string
	RateLimit      int
	RateWindow     time.Duration
	TrustedProxies []string
	Metrics        RequestMetrics
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.CookieTTL <= 0 {
		o.CookieTTL = DefaultCookieTTL
	}
	if o.BodyLimit <= 0 {
		o.BodyLimit = DefaultBodyLimit
	}
	if o.RateLimit <= 0 {
		o.RateLimit = DefaultRateLimit
	}
	if o.RateWindow <= 0 {
		o.RateWindow = DefaultRateWindow
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// API holds the handlers and middleware state.
type API struct {
	svc     AuthService
	opts    Options
	logger  *slog.Logger
	limiter *rateLimiter
}

// NewRouter builds the gin engine serving the account API.
func NewRouter(svc AuthService, opts Options) (*gin.Engine, error) {
	if svc == nil {
		return nil, oops.Code("HTTP_INVALID_DEPS").Errorf("auth service is required")
	}
	opts = opts.withDefaults()

	cors, err := newCORS(opts.CORSOrigins)
	if err != nil {
		return nil, err
	}

	a := &API{
		svc:     svc,
		opts:    opts,
		logger:  opts.Logger,
		limiter: newRateLimiter(opts.RateLimit, opts.RateWindow, opts.Now),
	}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, oops.Code("HTTP_INVALID_CONFIG").
			With("trusted_proxies", opts.TrustedProxies).
			Wrap(err)
	}

	r.Use(
		a.requestLogger(),
		a.requestMetrics(),
		gin.CustomRecoveryWithWriter(nil, a.recoverPanic),
		a.securityHeaders(),
		cors.handler(),
		a.rateLimit(),
		a.bodyLimit(),
	)
	r.NoRoute(a.notFound)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/v1/session", a.isLoggedIn(), a.session)

	users := r.Group(UsersPrefix)
	users.POST("/signup", a.signUp)
	users.POST("/login", a.login)
	users.GET("/logout", a.logout)
	users.POST("/forgotPassword", a.forgotPassword)
	users.PATCH("/resetPassword/:token", a.resetPassword)

	protected := users.Group("", a.protect())
	protected.PATCH("/updateMyPassword", a.updatePassword)
	protected.GET("/me", a.me)
	protected.GET("/:id", a.restrictTo(auth.RoleAdmin, auth.RoleLeadGuide), a.accountByID)

	return r, nil
}
