package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/utils"
)

const (
	TraceIDKey         = "trace_id"
	TraceIDHeader      = "X-Trace-ID"
	TraceParentHeader  = "traceparent"
	traceIDHexLength   = 32
	invalidTraceIDZero = "00000000000000000000000000000000"
)

// TracingMiddleware attaches a trace id to the request context and echoes it
// in X-Trace-ID. The id comes from a W3C traceparent header when one is
// valid, then from X-Trace-ID, and is generated otherwise.
func TracingMiddleware(logger logging.Logger, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, source := traceFromParent(c.GetHeader(TraceParentHeader)), TraceParentHeader
		if traceID == "" {
			traceID, source = strings.TrimSpace(c.GetHeader(TraceIDHeader)), TraceIDHeader
		}
		if !acceptableID(traceID) {
			traceID, source = utils.NewTraceID(), "generated"
		}
		if source == "generated" {
			logger.Debug("Trace ID missing, generated new one",
				logging.NewField("service", serviceName),
				logging.NewField("trace_id", traceID),
			)
		}

		//nolint:staticcheck // the logging package reads trace ids under plain string keys
		ctx := context.WithValue(c.Request.Context(), TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// traceFromParent returns the trace-id field of a version 00 traceparent
// header, or "" when the header is absent or malformed.
func traceFromParent(header string) string {
	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) != 4 || parts[0] != "00" {
		return ""
	}
	id := strings.ToLower(parts[1])
	if len(id) != traceIDHexLength || id == invalidTraceIDZero {
		return ""
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return ""
		}
	}
	return id
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetTraceIDFromGin retrieves the trace ID from Gin context.
func GetTraceIDFromGin(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}
