package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// APIContentSecurityPolicy forbids every subresource and framing. JSON and
// xlsx responses are never rendered as documents, so nothing is lost.
const APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional headers SecurityHeaders sends.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	// Leave it off unless traffic is TLS between proxy and app too.
	EnableHSTS bool
	HSTSMaxAge time.Duration // <= 0 means 180 days

	// NoStore marks responses uncacheable. Contact logs carry patient data,
	// so the API group sets it and the operational routes do not.
	NoStore bool

	// EnablePolicy sends Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool

	// ContentSecurityPolicy is sent verbatim when set. Swagger UI needs
	// scripts, so its group is mounted without one.
	ContentSecurityPolicy string

	// Expose lists response headers browsers may read in addition to
	// X-Request-ID, which is exposed whenever it is present.
	Expose []string
}

type headerPair struct{ name, value string }

// SecurityHeaders sets nosniff, DENY framing and no-referrer on every
// response, plus whatever opt enables. The fixed set is computed once.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		static = append(static,
			headerPair{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerPair{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if opt.NoStore {
		static = append(static,
			headerPair{"Cache-Control", "no-store"},
			headerPair{"Pragma", "no-cache"},
			headerPair{"Expires", "0"},
		)
	}
	if opt.ContentSecurityPolicy != "" {
		static = append(static, headerPair{"Content-Security-Policy", opt.ContentSecurityPolicy})
	}

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, p := range static {
			h.Set(p.name, p.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		expose := opt.Expose
		if h.Get(requestIDHeader) != "" {
			expose = append([]string{requestIDHeader}, expose...)
		}
		if merged := mergeTokens(h.Get("Access-Control-Expose-Headers"), expose); merged != "" {
			h.Set("Access-Control-Expose-Headers", merged)
		}
		c.Next()
	}
}

// mergeTokens appends each of add to the comma-separated list cur unless an
// equal token (case-insensitive) is already there.
func mergeTokens(cur string, add []string) string {
	seen := map[string]bool{}
	for _, t := range strings.Split(cur, ",") {
		if t = strings.TrimSpace(t); t != "" {
			seen[strings.ToLower(t)] = true
		}
	}
	out := cur
	for _, t := range add {
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		if out == "" {
			out = t
		} else {
			out += ", " + t
		}
	}
	return out
}

// isHTTPS reports whether r arrived over TLS, directly or through a proxy
// that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
