package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
)

const ServiceHandledHeader = "X-Service-Handled"

// ErrorHandlerMiddleware provides centralized error handling for HTTP handlers.
// It converts the last error recorded on the gin context into an
// {"error","code"} response. Client errors are logged at warn level,
// everything else at error level.
func ErrorHandlerMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Errors rendered by the handler itself were logged there.
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := errors.FromError(c.Errors.Last().Err)

		ctxLogger := logging.FromContext(c.Request.Context())
		fields := []logging.Field{
			logging.NewField("error", appErr.Error()),
			logging.NewField("code", appErr.Code),
			logging.NewField("status_code", appErr.HTTPStatus),
			logging.NewField("handled_by_service", appErr.HandledByService),
		}
		if appErr.HTTPStatus >= 500 {
			ctxLogger.Error("Request failed", fields...)
		} else {
			ctxLogger.Warn("Request rejected", fields...)
		}

		if appErr.HandledByService {
			c.Header(ServiceHandledHeader, "true")
		}

		c.JSON(appErr.HTTPStatus, appErr.ToErrorResponse())
	}
}

// SetError sets an error in the Gin context to be handled by ErrorHandlerMiddleware.
func SetError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
