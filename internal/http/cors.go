package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contactlog-backend/internal/auth"
	"github.com/tbourn/go-contactlog-backend/internal/config"
	"github.com/tbourn/go-contactlog-backend/internal/http/middleware"
)

var (
	corsAllowHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		auth.HeaderUserID, auth.HeaderUserName, middleware.HeaderIdempotencyKey,
	}
	corsExposeHeaders = []string{
		"X-Request-ID", "Content-Length", "ETag",
		"Idempotency-Replayed", "Content-Disposition", "Retry-After",
	}
)

// corsHandlers returns the CORS middleware for cfg. With no allowlist any
// origin may call the API without credentials, and Access-Control-Allow-Origin
// is sent even without an Origin header so plain clients and probes see it.
// With an allowlist the matching origin is echoed and Vary: Origin added.
func corsHandlers(cfg config.CORSConfig) []gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  corsAllowHeaders,
		ExposeHeaders: corsExposeHeaders,
		MaxAge:        12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cc),
		}
	}

	cc.AllowOrigins = cfg.AllowedOrigins
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); allowed[origin] {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Add("Vary", "Origin")
			}
			c.Next()
		},
		cors.New(cc),
	}
}
