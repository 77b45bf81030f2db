package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth authenticates admin requests with a bearer API key verified
// against a bcrypt hash from configuration
func AdminAuth(apiKeyHash string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKeyHash == "" {
			logger.Error("Admin API key hash not configured, refusing request")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "admin access not configured"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		apiKey := strings.TrimSpace(parts[1])
		if !VerifyAPIKey(apiKey, apiKeyHash) {
			logger.Warn("Admin authentication failed", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// VerifyAPIKey verifies an API key against a bcrypt hash
func VerifyAPIKey(apiKey, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) == nil
}
