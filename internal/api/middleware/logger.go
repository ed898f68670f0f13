package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/shotrank/internal/logger"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	ginLoggerKey       = "logger"
	maxRequestIDLength = 128
)

// Logger attaches a request-scoped logger carrying the request id and logs
// one line per finished request, at a level that follows the status code.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFrom(c)

		ctx := logger.WithRequest(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(ginLoggerKey, logger.FromContext(ctx))
		c.Header(RequestIDHeader, requestID)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		entry := logger.With(logger.Fields{
			"method":           c.Request.Method,
			"path":             path,
			"client_ip":        c.ClientIP(),
			logger.FieldStatus: status,
			logger.FieldSize:   c.Writer.Size(),
		}).Since(start)

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(ctx, "Request failed")
		case status >= http.StatusBadRequest:
			entry.Warn(ctx, "Request rejected")
		default:
			entry.Info(ctx, "Request completed")
		}
	}
}

// requestIDFrom reuses a caller-supplied id so traces join across services.
func requestIDFrom(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if id == "" || len(id) > maxRequestIDLength {
		return uuid.New().String()
	}
	return id
}

// GetLogger returns the request-scoped logger.
func GetLogger(c *gin.Context) *logger.Logger {
	if l, ok := c.Get(ginLoggerKey); ok {
		if log, ok := l.(*logger.Logger); ok {
			return log
		}
	}
	return logger.FromContext(c.Request.Context())
}
