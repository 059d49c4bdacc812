package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen key that makes a retried
// submission return the record created by the first attempt.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemMaxLen = 200
	// anonymousUser matches the identity auth falls back to in development.
	anonymousUser = "demo-user"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key IdempotencyValidator accepted, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, _ := c.Get(ctxKeyIdemKey)
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether a live record already exists for this request's
// user, scope and key. The handler decides what to replay.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions tunes IdempotencyValidator.
type IdempotencyOptions struct {
	MaxLen  int            // <= 0 means 200
	Pattern *regexp.Regexp // nil means ^[A-Za-z0-9._~\-:]+$

	// Scope names the operation a key belongs to. An empty result skips the
	// lookup but still validates and stashes the key. nil means the matched
	// route pattern.
	Scope func(c *gin.Context) string

	Now func() time.Time // nil means time.Now
}

// ScopeByRoute maps POST route patterns to idempotency scopes; other routes
// and methods get no scope.
func ScopeByRoute(scopes map[string]string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if c.Request.Method != http.MethodPost {
			return ""
		}
		return scopes[c.FullPath()]
	}
}

// IdempotencyLookup reports whether an unexpired record exists for
// (userID, scope, key) at now. Not-found is (false, nil).
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator checks the Idempotency-Key header on unsafe methods.
// Without the header it does nothing. A malformed key is rejected with 400
// and code "bad_idempotency_key". A lookup hit marks the request as a replay
// and exempts it from rate limiting. Lookup errors are logged and the
// request proceeds as a first attempt.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	if opts.MaxLen <= 0 {
		opts.MaxLen = defaultIdemMaxLen
	}
	if opts.Pattern == nil {
		opts.Pattern = defaultIdemPattern
	}
	if opts.Scope == nil {
		opts.Scope = func(c *gin.Context) string { return c.FullPath() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > opts.MaxLen || !opts.Pattern.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.GetString(requestIDKey),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		scope := opts.Scope(c)
		if lookup == nil || scope == "" {
			c.Next()
			return
		}
		found, err := lookup(c.Request.Context(), userIDFromCtx(c), scope, key, opts.Now().UTC())
		switch {
		case err != nil:
			LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
		case found:
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func userIDFromCtx(c *gin.Context) string {
	if s := c.GetString(userIDKey); s != "" {
		return s
	}
	return anonymousUser
}
