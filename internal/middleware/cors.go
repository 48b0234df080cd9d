package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Methods":  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers":  "Content-Type, Authorization, " + HeaderRequestID,
	"Access-Control-Expose-Headers": HeaderRequestID,
	"Access-Control-Max-Age":        "86400",
}

type originPolicy struct {
	any     bool
	origins map[string]struct{}
}

func newOriginPolicy(list string) originPolicy {
	p := originPolicy{origins: make(map[string]struct{})}
	for _, o := range strings.Split(list, ",") {
		switch o = strings.TrimRight(strings.TrimSpace(o), "/"); o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	if len(p.origins) == 0 {
		p.any = true
	}
	return p
}

// allow returns the Access-Control-Allow-Origin value for origin, or "" when it is refused.
func (p originPolicy) allow(origin string) string {
	if p.any {
		return "*"
	}
	if _, ok := p.origins[origin]; ok {
		return origin
	}
	return ""
}

// CORS lets the site and admin frontends call the API. allowedOrigins is CORS_ALLOWED_ORIGINS:
// "*" or a comma-separated list of origins; an empty value allows any origin.
// Preflights from a refused origin get 403.
func CORS(allowedOrigins string) gin.HandlerFunc {
	policy := newOriginPolicy(allowedOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allow := policy.allow(origin)
		if allow != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			if allow != "*" {
				h.Add("Vary", "Origin")
			}
			for k, v := range corsHeaders {
				h.Set(k, v)
			}
		}
		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if allow == "" && origin != "" {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
