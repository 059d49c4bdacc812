// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger of the API. Contact
// logs hold names of healthcare contacts and free-text notes, so request
// metadata is scrubbed before it is written:
//
//   - Bodies are never logged.
//   - Query parameters listed in RedactOptions.MaskQueryParams (the free-text
//     search "q" in production) are replaced wholesale.
//   - Remaining query values and header values have emails, phone numbers and
//     UUIDs replaced by typed markers.
//   - Authorization, Cookie, Set-Cookie and any extra MaskHeaders are masked.
//
// The middleware also attaches a request-scoped zerolog.Logger to the Gin
// context (see LoggerFrom) and to the request context, so services logging
// through log.Ctx(ctx) carry the request id.
package middleware

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const redactedValue = "[REDACTED]"

// RedactOptions configures additional scrub behavior for RedactingLogger.
type RedactOptions struct {
	// MaskHeaders names extra headers whose values are replaced with
	// "[REDACTED]". Matching is case-insensitive.
	MaskHeaders []string
	// MaskQueryParams names query parameters whose values are replaced with
	// "[REDACTED]" regardless of content.
	MaskQueryParams []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so UUID hex groups never look like a phone number.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redactPII replaces identifiers in s. UUIDs go first: the phone pattern would
// otherwise match their digit groups.
func redactPII(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(base []string, extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				out[v] = struct{}{}
			}
		}
	}
	return out
}

// scrubQuery rebuilds raw with masked and redacted values. Keys are sorted so
// identical requests produce identical log lines. Unparseable queries are
// redacted as a whole.
func scrubQuery(raw string, masked map[string]struct{}) string {
	if raw == "" {
		return ""
	}
	vals, err := url.ParseQuery(raw)
	if err != nil {
		return redactPII(raw)
	}
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		_, mask := masked[strings.ToLower(k)]
		for _, v := range vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			if mask {
				b.WriteString(redactedValue)
			} else {
				b.WriteString(redactPII(v))
			}
		}
	}
	return truncate(b.String(), maxQueryLogLength)
}

// RedactingLogger returns a Gin middleware that writes one structured access
// log line per request with sensitive values scrubbed.
//
// The line carries request_id, method, route path (raw path when no route
// matched), remote_ip, scrubbed query and headers, bytes in/out, status,
// latency and the acting user resolved by the authentication middleware.
// Level is error for 5xx or when handlers recorded gin errors, warn for 4xx
// and info otherwise.
//
// Place it after RequestID so the id is available to the scoped logger.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet([]string{"authorization", "cookie", "set-cookie"}, opts.MaskHeaders)
	maskQuery := lowerSet(nil, opts.MaskQueryParams)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rid, _ := c.Get(requestIDKey)
		reqID := asString(rid)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		l := log.With().
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = redactedValue
				continue
			}
			safeHeaders[k] = redactPII(strings.Join(vv, ", "))
		}
		safeQuery := scrubQuery(c.Request.URL.RawQuery, maskQuery)

		c.Next()

		status := c.Writer.Status()
		uid, _ := c.Get(userIDKey)

		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = l.Warn()
		}

		ev.
			Str("acting_user", asString(uid)).
			Str("remote_ip", c.ClientIP()).
			Str("query", safeQuery).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
