package handler

import (
	"net/http"

	"rancho-chat/internal/services"
	"rancho-chat/internal/transport/httpdto"
	rancho_errors "rancho-chat/pkg/errors"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

func orNop(l *logger.Logger) *logger.Logger {
	if l == nil {
		return logger.NewNop()
	}
	return l
}

// writeError answers a storage or infrastructure fault. Policy rejections
// never reach here.
func writeError(c *gin.Context, l *logger.Logger, err error) {
	status := rancho_errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		l.WithContext(c.Request.Context()).Errorf("%s %s: %s", c.Request.Method, c.FullPath(), err)
		c.JSON(status, httpdto.NewErrorResponse(http.StatusText(status), rancho_errors.Code(status)))
		return
	}
	c.JSON(status, httpdto.NewErrorResponse(err.Error(), rancho_errors.Code(status)))
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
}

// accountID reads the id stored by the auth middleware.
func accountID(c *gin.Context) (string, bool) {
	id, ok := services.AccountIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("access denied", "ACCESS_DENIED"))
	}
	return id, ok
}
