package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Identity is the acting user of a request.
type Identity struct {
	UserID string
	Name   string
}

type ctxKey struct{}

// Gin context keys. "userID" is shared with the logging, idempotency and
// rate limiting middleware.
const (
	GinKeyUserID   = "userID"
	GinKeyUserName = "userName"
)

// DemoUserID is the identity used when no authentication is configured and
// the request names no user.
const DemoUserID = "demo-user"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// FromGin resolves the acting user of a Gin request: the identity set by
// Authenticate, then the X-User-ID / X-User-Name headers, then DemoUserID.
func FromGin(c *gin.Context) Identity {
	if c == nil {
		return Identity{UserID: DemoUserID}
	}
	var id Identity
	if v, ok := c.Get(GinKeyUserID); ok {
		id.UserID, _ = v.(string)
	}
	if v, ok := c.Get(GinKeyUserName); ok {
		id.Name, _ = v.(string)
	}
	if id.UserID == "" && c.Request != nil {
		if fromCtx, ok := FromContext(c.Request.Context()); ok {
			id = fromCtx
		}
	}
	if id.UserID == "" && c.Request != nil {
		id.UserID = c.GetHeader(HeaderUserID)
		id.Name = c.GetHeader(HeaderUserName)
	}
	if id.UserID == "" {
		id.UserID = DemoUserID
	}
	if id.Name == "" {
		id.Name = id.UserID
	}
	return id
}
