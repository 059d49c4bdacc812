// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per acting user (or client IP before authentication). Requests may cost
// more than one token: the spreadsheet export reads every contact log, so it
// is priced above a list or form render.
//
// Idle buckets are swept on a timer piggybacked on lookups. Replays detected
// by IdempotencyValidator skip limiting entirely.
//
// The limiter is process-local; a horizontally scaled deployment needs a
// shared limiter in front of it.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the acting user set by the authentication
// middleware, falling back to the client IP. Keys are prefixed so the two
// namespaces never collide ("user:abc" vs "ip:203.0.113.7").
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if s := c.GetString(userIDKey); s != "" {
			return "user:" + s
		}
		return "ip:" + c.ClientIP()
	}
}

// CostByRoute prices requests by matched route pattern (c.FullPath()).
// Unlisted routes cost one token.
func CostByRoute(costs map[string]int) func(*gin.Context) int {
	return func(c *gin.Context) int {
		if n, ok := costs[c.FullPath()]; ok && n > 0 {
			return n
		}
		return 1
	}
}

// RateLimitOptions configures NewRateLimiter.
type RateLimitOptions struct {
	RPS   float64 // tokens replenished per second
	Burst int     // bucket size; values <= 0 become 1

	Key  keyFunc                // nil means KeyByUserOrIP
	Cost func(*gin.Context) int // nil means one token per request

	IdleTTL    time.Duration // buckets unused this long are dropped; default 10m
	SweepEvery time.Duration // minimum spacing of sweeps; default 1m
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. It is safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	key   keyFunc
	cost  func(*gin.Context) int

	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewRateLimiter builds a RateLimiter from opts; install it with Handler().
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	rl := &RateLimiter{
		rps:        rate.Limit(opts.RPS),
		burst:      opts.Burst,
		key:        opts.Key,
		cost:       opts.Cost,
		idleTTL:    opts.IdleTTL,
		sweepEvery: opts.SweepEvery,
		now:        time.Now,
		visitors:   make(map[string]*visitor),
	}
	if rl.burst <= 0 {
		rl.burst = 1
	}
	if rl.key == nil {
		rl.key = KeyByUserOrIP()
	}
	if rl.cost == nil {
		rl.cost = func(*gin.Context) int { return 1 }
	}
	if rl.idleTTL <= 0 {
		rl.idleTTL = 10 * time.Minute
	}
	if rl.sweepEvery <= 0 {
		rl.sweepEvery = time.Minute
	}
	return rl
}

// limiterFor returns the bucket for key, creating it on first use. The sweep
// runs before the lookup so a stale bucket for key itself is replaced.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.idleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// retryAfter is the whole number of seconds (at least 1) until lim holds n
// tokens.
func (rl *RateLimiter) retryAfter(lim *rate.Limiter, n int, now time.Time) int {
	if rl.rps <= 0 {
		return 60
	}
	missing := float64(n) - lim.TokensAt(now)
	secs := int(math.Ceil(missing / float64(rl.rps)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay, which Handler lets through without consuming tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware enforcing the limits.
//
// A request is charged its cost (capped at the burst size so it can always
// succeed eventually). When the bucket lacks tokens the request is rejected:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: <seconds>
//	{"request_id": "...", "code": "too_many_requests", "message": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		n := rl.cost(c)
		if n > rl.burst {
			n = rl.burst
		}
		lim := rl.limiterFor(rl.key(c), now)
		if lim.AllowN(now, n) {
			c.Next()
			return
		}

		httpRateLimited.WithLabelValues(routeLabel(c)).Inc()
		c.Header("Retry-After", strconv.Itoa(rl.retryAfter(lim, n, now)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
