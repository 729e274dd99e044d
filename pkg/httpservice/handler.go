package httpservice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/logging"
)

// GetLogger retrieves the contextual logger from the request.
func GetLogger(c *gin.Context) logging.Logger {
	return logging.FromContext(c.Request.Context())
}

// RespondSuccess sends {"message": message, key: data} with status 200.
func RespondSuccess(c *gin.Context, message, key string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		key:       data,
	})
}
