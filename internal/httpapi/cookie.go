// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieName is the cookie carrying the bearer token for browser clients.
const CookieName = "auth_token"

// Logout replaces the token with a placeholder that expires shortly.
const (
	loggedOutValue  = "loggedout"
	loggedOutExpiry = 10 * time.Second
)

func (a *API) authCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.opts.Production,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *API) setTokenCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, a.authCookie(token, a.opts.Now().Add(a.opts.CookieTTL)))
}

func (a *API) clearTokenCookie(c *gin.Context) {
	http.SetCookie(c.Writer, a.authCookie(loggedOutValue, a.opts.Now().Add(loggedOutExpiry)))
}
