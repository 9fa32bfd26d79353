package middleware

import (
	"time"

	"github.com/communelab/commune/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RequestLogger logs one structured line per handled request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Logger.Info()
		if c.Writer.Status() >= 500 {
			event = logger.Logger.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
