package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Development identity headers, honoured only when no Manager is configured.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

const bearerPrefix = "Bearer "

// Authenticate resolves the acting user and stores it on both the Gin context
// and the request context.
//
// With a non-nil Manager a valid bearer token is required; failures abort
// with 401. With a nil Manager (development mode) the X-User-ID and
// X-User-Name headers are trusted and DemoUserID is the fallback.
func Authenticate(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id Identity
		if m == nil {
			id = Identity{
				UserID: strings.TrimSpace(c.GetHeader(HeaderUserID)),
				Name:   strings.TrimSpace(c.GetHeader(HeaderUserName)),
			}
			if id.UserID == "" {
				id.UserID = DemoUserID
			}
		} else {
			raw := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(raw, bearerPrefix) {
				unauthorized(c, "missing bearer token")
				return
			}
			claims, err := m.Verify(strings.TrimPrefix(raw, bearerPrefix), time.Now())
			if err != nil {
				unauthorized(c, "invalid token")
				return
			}
			id = Identity{UserID: claims.UserID, Name: claims.Name}
		}
		if id.Name == "" {
			id.Name = id.UserID
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Set(GinKeyUserID, id.UserID)
		c.Set(GinKeyUserName, id.Name)
		c.Next()
	}
}

// unauthorized mirrors the API error envelope without importing the handlers
// package.
func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="contactlog"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.GetString("requestID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
