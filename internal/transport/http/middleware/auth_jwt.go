package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-backend/internal/core/auth"
	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/service"
	resp "go-gin-auth-backend/internal/transport/http/response"
)

const (
	KeyUserID = "userID"
	KeyUser   = "user"
)

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.User, error)
}

// AuthJWT lets a request through only with a valid access token for a user
// that still exists. The resolved user is stored under KeyUser.
func AuthJWT(a Authenticator, l *zap.Logger) gin.HandlerFunc {
	if l == nil {
		l = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			deny(c, "Access denied. No token provided.")
			return
		}
		u, err := a.Authenticate(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrTokenExpired):
			deny(c, "Token expired")
			return
		case errors.Is(err, auth.ErrTokenInvalidSignature), errors.Is(err, auth.ErrTokenMalformed):
			deny(c, "Invalid token")
			return
		case errors.Is(err, service.ErrUserNotFound):
			deny(c, "Invalid token. User not found.")
			return
		default:
			l.Error("access gate failed", RequestIDField(c), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp.Fail(http.StatusInternalServerError, ""))
			return
		}
		c.Set(KeyUserID, u.ID)
		c.Set(KeyUser, u)
		c.Next()
	}
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func deny(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Fail(http.StatusUnauthorized, msg))
}

// CurrentUser returns the user stored by AuthJWT.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(KeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}
