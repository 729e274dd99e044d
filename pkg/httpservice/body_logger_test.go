package httpservice

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
)

func TestAccessLogMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(AccessLogMiddleware(logging.NewFromZap(zap.New(core))))
	router.GET("/artifacts/:id", Wrap("download", func(c *gin.Context) error {
		if c.Param("id") == "missing" {
			return errors.NewNotFoundError("artifact missing not found")
		}
		c.Data(http.StatusOK, "application/pdf", []byte("%PDF-1.7 secret"))
		return nil
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/artifacts/present", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/artifacts/missing", nil))

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 2)

	ok := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "/artifacts/:id", ok["route"])
	assert.NotContains(t, ok, "response_body")

	rejected := entries[1].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusNotFound), rejected["status"])
	assert.Equal(t, map[string]interface{}{"error": "artifact missing not found", "code": "NOT_FOUND"}, rejected["response_body"])
}
