package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
)

// requestLogger tags every request with an id, stores a child logger on the
// context and logs the outcome once the handler chain returns.
func requestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		logger := base.With().Str("request_id", requestID).Logger()
		c.Set(loggerKey, &logger)

		start := time.Now()
		c.Next()

		event := logger.Info()
		status := c.Writer.Status()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (a *App) loggerFrom(c *gin.Context) *zerolog.Logger {
	if raw, ok := c.Get(loggerKey); ok {
		if logger, ok := raw.(*zerolog.Logger); ok {
			return logger
		}
	}
	return &a.log
}
