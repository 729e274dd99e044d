package httpservice

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// HandlerFunc is a handler function that returns an error.
type HandlerFunc func(c *gin.Context) error

// Wrap adapts a HandlerFunc to gin. It logs entry and exit with latency
// through the request's contextual logger, and renders a returned error
// as {"error","code"}. Client errors are logged at warn level, server
// errors at error level. The error is also recorded on the gin context for
// the alerting middleware.
func Wrap(handlerName string, fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)
		start := time.Now()

		logger.Debug("Handler started",
			logging.NewField("handler", handlerName),
			logging.NewField("method", c.Request.Method),
			logging.NewField("path", c.Request.URL.Path),
		)

		err := fn(c)
		latency := time.Since(start)

		if err != nil {
			appErr := errors.FromError(err)
			fields := []logging.Field{
				logging.NewField("handler", handlerName),
				logging.NewField("latency_ms", latency.Milliseconds()),
				logging.NewField("code", appErr.Code),
				logging.NewField("error", err),
			}
			if appErr.HTTPStatus >= 500 {
				logger.Error("Handler failed", fields...)
			} else {
				logger.Warn("Handler rejected request", fields...)
			}
			_ = c.Error(err)
			HandleError(c, appErr)
			return
		}

		logger.Debug("Handler completed",
			logging.NewField("handler", handlerName),
			logging.NewField("latency_ms", latency.Milliseconds()),
		)
	}
}
