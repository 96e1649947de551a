package middleware

import (
	"net/http"

	"rancho-chat/internal/transport/httpdto"
	rancho_errors "rancho-chat/pkg/errors"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns the last error attached with c.Error into a JSON body
// unless the handler already wrote one. Faults are reported by status only.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := rancho_errors.HTTPStatus(err)
		message := err.Error()
		if status >= http.StatusInternalServerError {
			if l != nil {
				l.WithContext(c.Request.Context()).Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, err)
			}
			message = http.StatusText(status)
		}
		c.AbortWithStatusJSON(status, httpdto.NewErrorResponse(message, rancho_errors.Code(status)))
	}
}
