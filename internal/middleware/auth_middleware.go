package middleware

import (
	"context"
	"net/http"
	"strings"

	"rancho-chat/internal/services"
	"rancho-chat/internal/transport/httpdto"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Authenticator is satisfied by services.AuthService.
type Authenticator interface {
	Authenticate(ctx context.Context, token, role string) (string, error)
}

// AuthMiddleware requires a valid access token carrying role. An empty role
// accepts any authenticated account.
func AuthMiddleware(auth Authenticator, role string, l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			denyAccess(c)
			return
		}

		accountID, err := auth.Authenticate(c.Request.Context(), token, role)
		if err != nil {
			if l != nil {
				l.WithContext(c.Request.Context()).Errorf("authenticate request: %s", err)
			}
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
			c.Abort()
			return
		}
		if accountID == "" {
			denyAccess(c)
			return
		}

		c.Request = c.Request.WithContext(services.WithAccountContext(c.Request.Context(), accountID))
		c.Next()
	}
}

func denyAccess(c *gin.Context) {
	c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("access denied", "ACCESS_DENIED"))
	c.Abort()
}

func extractToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader("x-access-token")); token != "" {
		return token
	}
	return extractBearer(c)
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
