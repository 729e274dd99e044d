package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourorg/pdf-service/pkg/logging"
)

func TestContextLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := logging.NewFromZap(zap.New(core))

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(TracingMiddleware(logger, "pdf-service"))
	router.Use(ContextLoggerMiddleware(logger, "pdf-service"))
	router.POST("/api/v1/pdf/:op", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("Operation finished")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/api/v1/pdf/merge", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	req.Header.Set(TraceIDHeader, "trace-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "pdf-service", fields["service"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/api/v1/pdf/:op", fields["route"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Contains(t, fields, "client_ip")
}
