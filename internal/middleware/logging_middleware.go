package middleware

import (
	"net/http"
	"time"

	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

var quietPaths = map[string]bool{
	"/ping":   true,
	"/health": true,
}

// LoggingMiddleware writes one line per request. Server faults log at error
// level and client errors at warn. Probe endpoints are not logged.
func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if quietPaths[path] {
			return
		}
		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log == nil {
			return
		}

		status := c.Writer.Status()
		line := log.WithContext(c.Request.Context())
		format := "%s %s %d %s from %s"
		args := []interface{}{c.Request.Method, path, status, time.Since(start), c.ClientIP()}
		switch {
		case status >= http.StatusInternalServerError:
			line.Errorf(format, args...)
		case status >= http.StatusBadRequest:
			line.Warnf(format, args...)
		default:
			line.Infof(format, args...)
		}
	}
}
