package middleware

import (
	"time"

	"github.com/damoang/angple-bans/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger returns a gin middleware that logs every request with structured fields
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		reqLog := logger.WithRequestID(requestID)
		event := reqLog.Info()
		if status >= 500 {
			event = reqLog.Error()
		} else if status >= 400 {
			event = reqLog.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_id", GetUserID(c)).
			Int("body_size", c.Writer.Size()).
			Msg("request")
	}
}
