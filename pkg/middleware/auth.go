package middleware

import (
	"context"
	"strings"

	"ftc-platform/pkg/access"
	"ftc-platform/pkg/errutil"

	"github.com/gin-gonic/gin"
)

const (
	HeaderAPIKey = "X-API-Key"
	HeaderUserID = "X-User-ID"

	userIDKey = "user_id"
)

type KeyAuthenticator interface {
	Authenticate(ctx context.Context, raw string) (*access.Principal, error)
}

// APIKey authenticates machine callers. A Bearer token is accepted as a fallback.
func APIKey(auth KeyAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderAPIKey))
		if raw == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if raw == "" {
			Abort(c, errutil.Unauthorized("missing api key", nil))
			return
		}

		p, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			Abort(c, err)
			return
		}

		c.Request = c.Request.WithContext(access.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func RequireScope(e *access.Enforcer, obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := access.PrincipalFrom(c.Request.Context())
		if !ok {
			Abort(c, errutil.Unauthorized("missing api key", nil))
			return
		}
		if !e.Allowed(p.Scopes, obj, act) {
			Abort(c, errutil.Forbidden("api key lacks the required scope", nil))
			return
		}
		c.Next()
	}
}

// UserID reads the caller identity set by the upstream session layer.
func UserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id == "" {
			Abort(c, errutil.Unauthorized("unauthorized", nil))
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
