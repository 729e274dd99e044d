package httpservice

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// maxLoggedErrorBody caps the captured error response body.
const maxLoggedErrorBody = 4 << 10

// errorBodyWriter keeps a copy of JSON error responses.
type errorBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *errorBodyWriter) Write(b []byte) (int, error) {
	if w.Status() >= 400 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if room := maxLoggedErrorBody - w.body.Len(); room > 0 {
			if len(b) < room {
				room = len(b)
			}
			w.body.Write(b[:room])
		}
	}
	return w.ResponseWriter.Write(b)
}

// AccessLogMiddleware writes one entry per request. Uploaded documents and
// produced files are never logged; only JSON error bodies are attached.
func AccessLogMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		writer := &errorBodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.NewField("method", c.Request.Method),
			logging.NewField("path", c.Request.URL.Path),
			logging.NewField("status", status),
			logging.NewField("latency_ms", time.Since(start).Milliseconds()),
			logging.NewField("request_bytes", c.Request.ContentLength),
			logging.NewField("response_bytes", c.Writer.Size()),
			logging.NewField("ip", c.ClientIP()),
		}

		if route := c.FullPath(); route != "" {
			fields = append(fields, logging.NewField("route", route))
		}
		if requestID, exists := c.Get("request_id"); exists {
			fields = append(fields, logging.NewField("request_id", requestID))
		}
		if traceID, exists := c.Get("trace_id"); exists {
			fields = append(fields, logging.NewField("trace_id", traceID))
		}

		if writer.body.Len() > 0 {
			var parsed interface{}
			if err := json.Unmarshal(writer.body.Bytes(), &parsed); err == nil {
				fields = append(fields, logging.NewField("response_body", parsed))
			} else {
				fields = append(fields, logging.NewField("response_body_raw", writer.body.String()))
			}
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
