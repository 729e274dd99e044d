// Package jwt validates bearer tokens that identify the owner of uploaded
// documents. Tokens are HS256 signed and carry the owner in the user_id claim.
package jwt

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yourorg/pdf-service/pkg/logging"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenPoisoned    = errors.New("token appears to be poisoned or tampered")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingClaims    = errors.New("required claims are missing")
	ErrTokenTooLarge    = errors.New("token size exceeds maximum allowed")
	ErrSecretTooShort   = fmt.Errorf("secret key must be at least %d characters long", MinSecretKeyLength)
)

const (
	// MaxTokenSize to prevent DoS attacks (16KB)
	MaxTokenSize = 16 * 1024
	// MinSecretKeyLength for security
	MinSecretKeyLength = 32
	// DefaultIssuer is stamped on generated tokens when Config.Issuer is empty.
	DefaultIssuer = "auth-service"

	maxClaimLength = 255
)

// Claims represents the JWT claims structure.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Config holds JWT configuration.
type Config struct {
	SecretKey             string
	Issuer                string
	AccessTokenExpiryMins int
}

// JWTService handles JWT token operations.
type JWTService struct {
	secretKey    []byte
	issuer       string
	accessExpiry time.Duration
	logger       logging.Logger
}

// NewJWTServiceFromConfig creates a JWT service, defaulting the issuer and a
// fifteen minute access token lifetime.
func NewJWTServiceFromConfig(cfg Config, logger logging.Logger) (*JWTService, error) {
	expiry := time.Duration(cfg.AccessTokenExpiryMins) * time.Minute
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return NewJWTService(cfg.SecretKey, issuer, expiry, logger)
}

// NewJWTService creates a new JWT service instance.
func NewJWTService(secretKey, issuer string, accessExpiry time.Duration, logger logging.Logger) (*JWTService, error) {
	if len(secretKey) < MinSecretKeyLength {
		return nil, ErrSecretTooShort
	}

	return &JWTService{
		secretKey:    []byte(secretKey),
		issuer:       issuer,
		accessExpiry: accessExpiry,
		logger:       logger,
	}, nil
}

// GenerateAccessToken issues a token for userID. The service only consumes
// tokens; this is used by tooling and tests to mint them.
func (j *JWTService) GenerateAccessToken(userID string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   userID,
			ID:        generateTokenID(),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		j.logger.Error("Failed to sign token", logging.NewField("error", err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if len(tokenString) > MaxTokenSize {
		return "", ErrTokenTooLarge
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if len(tokenString) > MaxTokenSize {
		return nil, ErrTokenTooLarge
	}

	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrInvalidToken
	}

	if containsSuspiciousPatterns(tokenString) {
		j.logger.Warn("Suspicious token pattern detected", logging.NewField("token_length", len(tokenString)))
		return nil, ErrTokenPoisoned
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// HMAC only; rejects alg=none and RSA/HMAC confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		}
		j.logger.Warn("Token validation failed", logging.NewField("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if err := j.validateClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// validateClaims performs additional checks on claims.
func (j *JWTService) validateClaims(claims *Claims) error {
	if claims.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrMissingClaims)
	}

	if err := validateUserID(claims.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}

	if claims.Issuer != "" && claims.Issuer != j.issuer {
		// Logged for monitoring only.
		j.logger.Warn("Token from unexpected issuer", logging.NewField("issuer", claims.Issuer))
	}

	return nil
}

// validateUserID rejects owner ids that could not be used safely as a blob
// name prefix.
func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user_id cannot be empty")
	}
	if len(userID) > maxClaimLength {
		return errors.New("user_id exceeds maximum length")
	}

	lower := strings.ToLower(userID)
	for _, pattern := range []string{"<script", "javascript:", "../", "..\\"} {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("suspicious pattern detected in input: %s", pattern)
		}
	}
	if strings.ContainsAny(userID, "/\\") {
		return errors.New("user_id cannot contain path separators")
	}
	for _, r := range userID {
		if r < 0x20 || r == 0x7f {
			return errors.New("user_id cannot contain control characters")
		}
	}

	return nil
}

// containsSuspiciousPatterns checks for patterns that might indicate a poisoned token.
func containsSuspiciousPatterns(tokenString string) bool {
	if strings.Count(tokenString, "{") > 10 || strings.Count(tokenString, "[") > 10 {
		return true
	}

	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return false // caught by the parser
	}

	// 8KB payload limit
	return len(parts[1]) > 8192
}

// generateTokenID generates a unique token ID (JTI claim).
func generateTokenID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
