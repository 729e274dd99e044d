package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// ContextLoggerMiddleware stores a request-scoped logger in the request
// context. Every line it writes carries the service, method, matched route,
// client ip and the correlation ids set by the earlier middleware, so
// operation logs join up with access logs.
func ContextLoggerMiddleware(baseLogger logging.Logger, serviceName string) gin.HandlerFunc {
	base := baseLogger.With(logging.NewField("service", serviceName))

	return func(c *gin.Context) {
		fields := make([]logging.Field, 0, 5)
		fields = append(fields,
			logging.NewField("method", c.Request.Method),
			logging.NewField("client_ip", c.ClientIP()),
		)
		for _, f := range []struct{ key, value string }{
			{"route", c.FullPath()},
			{"trace_id", GetTraceIDFromGin(c)},
			{"request_id", GetRequestIDFromGin(c)},
		} {
			if f.value != "" {
				fields = append(fields, logging.NewField(f.key, f.value))
			}
		}

		ctx := logging.WithLogger(c.Request.Context(), base.With(fields...))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
