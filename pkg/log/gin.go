package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware returns a Gin middleware that:
//  1. Generates or reads a request ID from X-Request-ID header.
//  2. Injects a request-scoped child logger into the request context.
//  3. Echoes the request ID in the response.
//  4. Logs the completed request with status, latency and actor info.
func GinMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		child := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()

		c.Header(headerRequestID, reqID)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), child))

		c.Next()

		status := c.Writer.Status()
		evt := child.Info()
		if status >= 500 {
			evt = child.Error()
		}
		evt = evt.
			Int(FieldStatus, status).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds()))

		if userID, ok := c.Get(FieldUserID); ok {
			if id, ok := userID.(uint); ok {
				evt = evt.Uint(FieldUserID, id)
			}
		}
		if username, ok := c.Get(FieldUsername); ok {
			if name, ok := username.(string); ok {
				evt = evt.Str(FieldUsername, name)
			}
		}

		evt.Msg("request completed")
	}
}
