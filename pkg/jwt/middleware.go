package jwt

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/errors"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/middleware"
)

const (
	// Context keys for storing JWT claims
	ContextKeyUserID = "user_id"
	ContextKeyClaims = "jwt_claims"
)

// bearerToken extracts the token from an Authorization header. ok is false
// when the header is absent or not a bearer credential.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// OptionalJWTMiddleware validates a bearer token when one is present and
// stores its claims; requests without a token continue anonymously. A token
// that is present but invalid is rejected with 401, so a client never
// silently loses its identity. Rejections are rendered by
// middleware.ErrorHandlerMiddleware.
func OptionalJWTMiddleware(jwtService *JWTService, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		tokenString, ok := bearerToken(header)
		if !ok || containsMultipleTokens(tokenString) {
			logger.Warn("Invalid authorization header format",
				logging.NewField("header_length", len(header)),
				logging.NewField("ip", c.ClientIP()),
			)
			middleware.SetError(c, errors.NewUnauthorizedError("Invalid authorization header. Expected: Bearer <token>"))
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Token validation failed",
				logging.NewField("error", err),
				logging.NewField("ip", c.ClientIP()),
				logging.NewField("path", c.Request.URL.Path),
			)

			middleware.SetError(c, rejection(err))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

func rejection(err error) *errors.AppError {
	switch err {
	case ErrExpiredToken:
		return errors.NewUnauthorizedError("Token has expired")
	case ErrTokenPoisoned:
		return errors.NewForbiddenError("Token validation failed")
	case ErrTokenTooLarge:
		return errors.NewAppError(errors.ErrorCodePayloadTooLarge, "Token size exceeds maximum allowed", http.StatusRequestEntityTooLarge)
	default:
		return errors.NewUnauthorizedError("Invalid token")
	}
}

// OwnerID returns the authenticated owner, or fallback when the request
// carried no token.
func OwnerID(c *gin.Context, fallback string) string {
	if userID, ok := GetUserID(c); ok && userID != "" {
		return userID
	}
	return fallback
}

// GetUserID extracts user ID from context.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	userIDStr, ok := userID.(string)
	return userIDStr, ok
}

// GetClaims extracts full JWT claims from context.
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	jwtClaims, ok := claims.(*Claims)
	return jwtClaims, ok
}

// containsMultipleTokens reports a value with more than the two dots of a
// single compact JWT.
func containsMultipleTokens(tokenString string) bool {
	return strings.Count(tokenString, ".") > 2
}
