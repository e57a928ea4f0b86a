package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-dorm/internal/auth"
	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/pkg/log"
	"github.com/weiawesome/wes-io-dorm/pkg/response"
)

const (
	UserIDKey     = log.FieldUserID
	UsernameKey   = log.FieldUsername
	UserKey       = "user"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// BearerToken returns the token from an "Authorization: Bearer" header, or
// "" when the header is absent or uses another scheme.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthHeaderKey)
	if len(header) < len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(BearerPrefix):])
}

// RequireUser resolves the bearer token to a user and runs gates on it.
// The user is re-read from storage on every request.
func RequireUser(resolver *auth.Resolver, gates ...auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user, err := resolver.Authenticate(ctx, BearerToken(c), gates...)
		if err != nil {
			if domain.KindOf(err) != domain.KindInvalidCredentials {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Msg("request rejected")
			}
			response.FromError(c, err)
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UsernameKey, user.Username)
		c.Set(UserKey, user)
		ctx = log.With(ctx, log.FieldUsername, user.Username)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// GetUserID extracts the authenticated user's ID.
func GetUserID(c *gin.Context) uint {
	if id, ok := c.Get(UserIDKey); ok {
		return id.(uint)
	}
	return 0
}
