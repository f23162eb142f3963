package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextKey is the gin context key holding the request-scoped logger
const ContextKey = "logger"

// Middleware installs a request-scoped logger and logs each completed
// request. It expects the request id header to have been set upstream.
func Middleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKey, logger.WithRequestID(c.GetHeader("X-Request-ID")))

		start := time.Now()
		c.Next()

		// upgraded sockets log their own lifecycle
		if c.Writer.Status() == http.StatusSwitchingProtocols {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		reqLogger := FromContext(c)
		reqLogger.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))

		for _, err := range c.Errors {
			reqLogger.Debug("request error",
				"path", c.Request.URL.Path,
				"error", err.Error(),
			)
		}
	}
}

// Scope replaces the request-scoped logger with one carrying extra attributes,
// so handlers further down the chain log them too.
func Scope(c *gin.Context, args ...any) *Logger {
	l := FromContext(c).With(args...)
	c.Set(ContextKey, l)
	return l
}

// FromContext returns the request-scoped logger, falling back to the global one
func FromContext(c *gin.Context) *Logger {
	if l, ok := c.Get(ContextKey); ok {
		if reqLogger, ok := l.(*Logger); ok {
			return reqLogger
		}
	}
	return GetGlobal()
}
