package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/utils"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"

	// maxRequestIDLength caps ids accepted from callers.
	maxRequestIDLength = 128
)

// RequestIDMiddleware attaches a request id to the request context and echoes
// it in the response. A caller supplied X-Request-ID is kept when it is short
// and printable; otherwise a new id is generated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if !acceptableID(requestID) {
			requestID = utils.NewID()
		}

		//nolint:staticcheck // the logging package reads request ids under plain string keys
		ctx := context.WithValue(c.Request.Context(), RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func acceptableID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetRequestIDFromGin retrieves the request ID from Gin context.
func GetRequestIDFromGin(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
