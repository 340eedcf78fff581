package api

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "requestID"

// RequestID tags every request with a UUID, echoed in the
// X-Request-Id response header and in log lines.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// RequestLogger logs one line per request with method, path, status,
// latency and request id.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("requestId", c.GetString(requestIDKey)),
		)
	}
}

// Recovery is the terminal handler for errors that escape route-local
// handling. It responds 500 with the error message and an empty error
// object; the stack trace is logged only when logStacks is enabled.
func Recovery(logger *zap.Logger, logStacks bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		if logStacks {
			logger.Error("unhandled error",
				zap.Any("error", recovered),
				zap.String("stack", string(debug.Stack())),
				zap.String("requestId", c.GetString(requestIDKey)),
			)
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": fmt.Sprint(recovered),
			"error":   gin.H{},
		})
	})
}
