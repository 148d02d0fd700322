package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pollux-gateway/pollux/internal/logging"
)

const requestIDKey = "request_id"

// requestID stamps every inbound request with a correlation id, threading
// it onto the Gin context, the request's context.Context (so credpool,
// orchestrator, and ratelimit logs can join it via logging.GetRequestID),
// and the response header.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// accessLog logs one structured line per request, carrying
// method/path/status/latency.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		log.WithFields(log.Fields{
			"request_id": c.GetString(requestIDKey),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).Truncate(time.Millisecond),
			"method":     c.Request.Method,
			"path":       path,
		}).Info("request")
	}
}
