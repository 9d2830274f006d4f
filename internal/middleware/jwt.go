package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"brokerage_crm/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// ContextUserID is the gin context key holding the authenticated user ID
const ContextUserID = "userID"

// JWTAuthMiddleware requires a valid session token and extracts user information
func JWTAuthMiddleware(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFromRequest(c, cookieName) // Bearer header or session cookie
		// Check if a token was presented at all
		if tokenStr == "" {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret, utils.PurposeSession) // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ContextUserID, claims.UserID) // Store userID in context
		c.Next()                            // Proceed to the next handler
	}
}

// OptionalJWTMiddleware identifies the caller when a valid session token is
// presented and lets anonymous callers through otherwise
func OptionalJWTMiddleware(secret, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := tokenFromRequest(c, cookieName); tokenStr != "" {
			// An unusable token is treated as no token
			if claims, err := utils.ParseJWT(tokenStr, secret, utils.PurposeSession); err == nil {
				c.Set(ContextUserID, claims.UserID) // Store userID in context
			}
		}
		c.Next() // Proceed to the next handler
	}
}

// tokenFromRequest reads the bearer token, falling back to the session cookie
func tokenFromRequest(c *gin.Context, cookieName string) string {
	authHeader := c.GetHeader("Authorization") // Get Authorization header
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
	}
	if cookieName == "" {
		return ""
	}
	cookie, err := c.Cookie(cookieName) // Browser sessions carry the token in a cookie
	if err != nil {
		return ""
	}
	return cookie
}
