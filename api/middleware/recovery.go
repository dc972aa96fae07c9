package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/videold-go/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 with the same {error, message} body the API
// uses for operation failures. The panic also goes to the error event log when events is set.
func Recovery(log *zap.Logger, events *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			fields := []zap.Field{
				zap.String("panic", fmt.Sprint(recovered)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			}
			log.Error("Panic recovered", fields...)
			if events != nil {
				events.LogAppError("Panic recovered", fields...)
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Something went wrong. Please try again.",
			})
		}()
		c.Next()
	}
}
