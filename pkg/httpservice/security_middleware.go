package httpservice

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// RequestSizeLimitMiddleware limits the maximum size of request bodies.
// Bodies that declare a larger Content-Length are refused up front; chunked
// bodies are cut off by http.MaxBytesReader and surface as PAYLOAD_TOO_LARGE
// when a handler reads past the limit.
func RequestSizeLimitMiddleware(maxBytes int64, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			logger.Warn("Request body too large",
				logging.NewField("content_length", c.Request.ContentLength),
				logging.NewField("max_bytes", maxBytes),
				logging.NewField("ip", c.ClientIP()),
			)
			abortWithError(c, errors.NewPayloadTooLargeError(maxBytes))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// HTTPMethodWhitelistMiddleware answers methods outside allowedMethods with
// 405 and an Allow header before any routing work is done.
func HTTPMethodWhitelistMiddleware(allowedMethods []string, logger logging.Logger) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedMethods))
	for _, method := range allowedMethods {
		allowed[strings.ToUpper(method)] = true
	}
	allowHeader := strings.Join(allowedMethods, ", ")

	return func(c *gin.Context) {
		if !allowed[c.Request.Method] {
			logger.Warn("HTTP method not allowed",
				logging.NewField("method", c.Request.Method),
				logging.NewField("path", c.Request.URL.Path),
				logging.NewField("ip", c.ClientIP()),
			)
			c.Header("Allow", allowHeader)
			abortWithError(c, errors.NewAppError(errors.ErrorCodeBadRequest, "Method not allowed", http.StatusMethodNotAllowed))
			return
		}
		c.Next()
	}
}
