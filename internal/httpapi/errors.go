// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/pkg/errutil"
)

// Codes produced by the HTTP layer itself.
const (
	CodeBadRequest      = "HTTP_BAD_REQUEST"
	CodeBodyTooLarge    = "HTTP_BODY_TOO_LARGE"
	CodeInvalidID       = "HTTP_INVALID_ID"
	CodeRouteNotFound   = "HTTP_ROUTE_NOT_FOUND"
	CodeTooManyRequests = "HTTP_TOO_MANY_REQUESTS"
	codePanic           = "HTTP_PANIC"
)

// genericMessage replaces the message of non-operational errors in production.
const genericMessage = "Something went very wrong!"

// operationalStatus maps codes whose messages are safe to show callers.
var operationalStatus = map[string]int{
	auth.CodeValidationFailed:    http.StatusBadRequest,
	auth.CodeMissingCredentials:  http.StatusBadRequest,
	auth.CodeEmailTaken:          http.StatusBadRequest,
	auth.CodeInvalidResetToken:   http.StatusBadRequest,
	auth.CodeNotAuthenticated:    http.StatusUnauthorized,
	auth.CodeInvalidCredentials:  http.StatusUnauthorized,
	auth.CodeTooManyAttempts:     http.StatusUnauthorized,
	auth.CodeForbidden:           http.StatusForbidden,
	auth.CodeNoSuchAccount:       http.StatusNotFound,
	auth.CodeEmailDeliveryFailed: http.StatusInternalServerError,
	CodeBadRequest:               http.StatusBadRequest,
	CodeInvalidID:                http.StatusBadRequest,
	CodeRouteNotFound:            http.StatusNotFound,
	CodeBodyTooLarge:             http.StatusRequestEntityTooLarge,
	CodeTooManyRequests:          http.StatusTooManyRequests,
}

type errorBody struct {
	Status     string            `json:"status"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
	Code       string            `json:"code,omitempty"`
	Context    map[string]any    `json:"context,omitempty"`
	Stacktrace string            `json:"stacktrace,omitempty"`
}

// statusText is "fail" for client errors and "error" otherwise.
func statusText(status int) string {
	if status >= 400 && status < 500 {
		return "fail"
	}
	return "error"
}

// classify returns the HTTP status for err and whether its message may be
// shown to the caller.
func classify(err error) (int, bool) {
	if status, ok := operationalStatus[errutil.Code(err)]; ok {
		return status, true
	}
	return http.StatusInternalServerError, false
}

// fail aborts the request with the rendered error.
func (a *API) fail(c *gin.Context, err error) {
	status, operational := classify(err)
	if !operational {
		errutil.LogErrorContext(c.Request.Context(), a.logger, "request failed", err)
	}

	body := errorBody{Status: statusText(status), Message: err.Error()}
	oopsErr, isOops := oops.AsOops(err)
	if isOops && operational {
		if fields, ok := oopsErr.Context()["fields"].(map[string]string); ok {
			body.Errors = fields
		}
	}

	switch {
	case !a.opts.Production:
		body.Code = errutil.Code(err)
		if isOops {
			body.Context = oopsErr.Context()
			body.Stacktrace = oopsErr.Stacktrace()
		}
	case !operational:
		body.Message = genericMessage
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// bindError converts a JSON binding failure into an operational error.
func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return oops.Code(CodeBodyTooLarge).
			With("limit", tooLarge.Limit).
			Errorf("Request body is larger than %d bytes", tooLarge.Limit)
	}
	return oops.Code(CodeBadRequest).
		With("cause", err.Error()).
		Errorf("Invalid request body")
}

func (a *API) recoverPanic(c *gin.Context, recovered any) {
	a.fail(c, oops.Code(codePanic).
		With("method", c.Request.Method).
		With("route", routeOf(c)).
		Errorf("panic: %s", fmt.Sprint(recovered)))
}

func (a *API) notFound(c *gin.Context) {
	a.fail(c, oops.Code(CodeRouteNotFound).
		Errorf("Can't find %s on this server", c.Request.URL.RequestURI()))
}
