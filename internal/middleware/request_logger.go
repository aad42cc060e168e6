package middleware

import (
	"log/slog"
	"time"

	"github.com/fintlabs/lending-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs incoming HTTP requests using slog
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		// Skip logging for health check to avoid noise
		if path == "/api/v1/health" {
			return
		}

		latency := time.Since(start)

		clientIP := c.ClientIP()
		method := c.Request.Method
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", statusCode),
			slog.String("ip", clientIP),
			slog.Duration("latency", latency),
			slog.String("user_agent", c.Request.UserAgent()),
		}

		if errorMessage != "" {
			attrs = append(attrs, slog.String("error", errorMessage))
		}

		msg := "Incoming request"
		if statusCode >= 500 {
			logger.Log.Error(msg, attrs...)
		} else if statusCode >= 400 {
			logger.Log.Warn(msg, attrs...)
		} else {
			logger.Log.Info(msg, attrs...)
		}
	}
}
