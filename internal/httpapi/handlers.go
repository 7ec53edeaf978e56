// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/natours/natours/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type updatePasswordRequest struct {
	Password           string `json:"password"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

type userData struct {
	User auth.PublicAccount `json:"user"`
}

type sessionResponse struct {
	Status string   `json:"status"`
	Token  string   `json:"token"`
	Data   userData `json:"data"`
}

type accountResponse struct {
	Status string   `json:"status"`
	Data   userData `json:"data"`
}

type sessionStatus struct {
	LoggedIn bool                `json:"loggedIn"`
	User     *auth.PublicAccount `json:"user,omitempty"`
}

// bind decodes the JSON body into dst, rendering the failure itself.
func (a *API) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		a.fail(c, bindError(err))
		return false
	}
	return true
}

// sendSession sets the auth cookie and writes the token with the account.
func (a *API) sendSession(c *gin.Context, status int, session *auth.Session) {
	a.setTokenCookie(c, session.Token)
	c.JSON(status, sessionResponse{
		Status: "success",
		Token:  session.Token,
		Data:   userData{User: session.Account.Public()},
	})
}

// baseURL is the externally visible scheme and host for mailed links.
func (a *API) baseURL(c *gin.Context) string {
	if a.opts.PublicURL != "" {
		return strings.TrimRight(a.opts.PublicURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (a *API) signUp(c *gin.Context) {
	var in auth.SignUpInput
	if !a.bind(c, &in) {
		return
	}

	session, err := a.svc.SignUp(c.Request.Context(), in, a.baseURL(c)+"/me")
	if err != nil {
		a.fail(c, err)
		return
	}
	a.sendSession(c, http.StatusCreated, session)
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if !a.bind(c, &req) {
		return
	}

	session, err := a.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.sendSession(c, http.StatusOK, session)
}

func (a *API) logout(c *gin.Context) {
	a.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *API) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !a.bind(c, &req) {
		return
	}

	base := a.baseURL(c)
	err := a.svc.ForgotPassword(c.Request.Context(), req.Email, func(rawToken string) string {
		return base + UsersPrefix + "/resetPassword/" + rawToken
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email!"})
}

func (a *API) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !a.bind(c, &req) {
		return
	}

	session, err := a.svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.ConfirmPassword)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.sendSession(c, http.StatusOK, session)
}

func (a *API) updatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if !a.bind(c, &req) {
		return
	}

	acct := currentAccount(c)
	session, err := a.svc.UpdatePassword(c.Request.Context(), acct.ID, req.Password, req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.sendSession(c, http.StatusOK, session)
}

func (a *API) me(c *gin.Context) {
	c.JSON(http.StatusOK, accountResponse{
		Status: "success",
		Data:   userData{User: currentAccount(c).Public()},
	})
}

func (a *API) accountByID(c *gin.Context) {
	id, err := ulid.ParseStrict(c.Param("id"))
	if err != nil {
		a.fail(c, oops.Code(CodeInvalidID).
			With("id", c.Param("id")).
			Errorf("Invalid id: %s", c.Param("id")))
		return
	}

	acct, err := a.svc.Account(c.Request.Context(), id)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, accountResponse{
		Status: "success",
		Data:   userData{User: acct.Public()},
	})
}

func (a *API) session(c *gin.Context) {
	status := sessionStatus{}
	if acct := currentAccount(c); acct != nil {
		pub := acct.Public()
		status = sessionStatus{LoggedIn: true, User: &pub}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": status})
}
