// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/natours/natours/internal/auth"
)

// accountKey is the gin context key holding the authenticated *auth.Account.
const accountKey = "account"

const bearerPrefix = "Bearer "

// unmatchedRoute labels logs and metrics for requests that hit no registered route.
const unmatchedRoute = "unmatched"

// requestToken returns the bearer token from the Authorization header, or
// from the auth cookie when no header token is present.
func requestToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)); token != "" {
			return token
		}
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

// currentAccount returns the account stored by protect or isLoggedIn.
func currentAccount(c *gin.Context) *auth.Account {
	if v, ok := c.Get(accountKey); ok {
		if acct, ok := v.(*auth.Account); ok {
			return acct
		}
	}
	return nil
}

// protect rejects requests without a valid token for a current account.
func (a *API) protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, err := a.svc.Authenticate(c.Request.Context(), requestToken(c))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.Set(accountKey, acct)
		c.Next()
	}
}

// isLoggedIn attaches the account when the token is valid and never fails.
func (a *API) isLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		if acct, ok := a.svc.TryAuthenticate(c.Request.Context(), requestToken(c)); ok {
			c.Set(accountKey, acct)
		}
		c.Next()
	}
}

// restrictTo admits only accounts holding one of roles. It must run after protect.
func (a *API) restrictTo(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.svc.Authorize(currentAccount(c), roles...); err != nil {
			a.fail(c, err)
			return
		}
		c.Next()
	}
}

// routeOf returns the matched route template. Reset paths carry the raw
// token, so raw paths are never logged.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

func (a *API) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := routeOf(c)
		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (a *API) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		a.opts.Metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// securityHeaders sets a conservative subset of the usual hardening headers.
func (a *API) securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("X-XSS-Protection", "0")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'self'; object-src 'none'")
		if a.opts.Production {
			h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		c.Next()
	}
}

// bodyLimit caps request bodies; reads past the limit fail during binding.
func (a *API) bodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > a.opts.BodyLimit {
			a.fail(c, oops.Code(CodeBodyTooLarge).
				With("limit", a.opts.BodyLimit).
				Errorf("Request body is larger than %d bytes", a.opts.BodyLimit))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.opts.BodyLimit)
		}
		c.Next()
	}
}

// rateLimit applies the per-client request budget to everything under /api.
func (a *API) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, APIPrefix) {
			c.Next()
			return
		}

		res := a.limiter.allow(c.ClientIP())
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.remaining))
		if !res.allowed {
			h.Set("Retry-After", strconv.Itoa(int(res.retryAfter.Round(time.Second)/time.Second)))
			a.opts.Metrics.RecordRateLimited()
			a.fail(c, oops.Code(CodeTooManyRequests).
				With("client_ip", c.ClientIP()).
				Errorf("Too many requests from this IP, please try again in an hour!"))
			return
		}
		c.Next()
	}
}
