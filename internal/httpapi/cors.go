// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

const (
	corsAllowMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"
	corsMaxAge       = "600"
)

// corsPolicy matches request origins against glob patterns such as
// "https://*.natours.dev". A lone "*" allows any origin without credentials.
type corsPolicy struct {
	any      bool
	patterns []glob.Glob
}

func newCORS(origins []string) (*corsPolicy, error) {
	p := &corsPolicy{}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			p.any = true
			continue
		}
		g, err := glob.Compile(origin)
		if err != nil {
			return nil, oops.Code("HTTP_INVALID_CONFIG").
				With("cors_origin", origin).
				Wrap(err)
		}
		p.patterns = append(p.patterns, g)
	}
	return p, nil
}

func (p *corsPolicy) match(origin string) bool {
	for _, g := range p.patterns {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func (p *corsPolicy) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		switch {
		case p.match(origin):
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case p.any:
			h.Set("Access-Control-Allow-Origin", "*")
		default:
			// Unlisted origins get no CORS headers; browsers enforce the rest.
			c.Next()
			return
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			if reqHeaders := c.GetHeader("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
				h.Add("Vary", "Access-Control-Request-Headers")
			}
			h.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
