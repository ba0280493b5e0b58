package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ukaji3/schedstruct-go/internal/logging"
)

// requestLogger logs one line per request.
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.Int("status", status),
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.String("ip", c.ClientIP()),
			logging.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("client error", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// bodyLimit caps the request body at maxBytes.
func bodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
