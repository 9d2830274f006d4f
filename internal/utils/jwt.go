package utils

import (
	"errors" // Error values
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// Token purposes
const (
	PurposeSession       = "session"        // Login session / registration continuation
	PurposePasswordReset = "password_reset" // One-shot credential reset
)

// ErrWrongPurpose is returned when a token is presented to the wrong endpoint
var ErrWrongPurpose = errors.New("token purpose mismatch")

// JWT Claims
type Claims struct {
	UserID               uint   `json:"user_id"`         // Custom claim for user ID
	Purpose              string `json:"purpose"`         // What the token may be used for
	Stamp                string `json:"stamp,omitempty"` // Security stamp binding a reset token to one credential state
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates a session token for a given user ID
func GenerateJWT(userID uint, secret string, ttl time.Duration) (string, error) {
	return sign(Claims{UserID: userID, Purpose: PurposeSession}, secret, ttl)
}

// GenerateResetToken creates a credential reset token bound to the user's current security stamp
func GenerateResetToken(userID uint, stamp, secret string, ttl time.Duration) (string, error) {
	return sign(Claims{UserID: userID, Purpose: PurposePasswordReset, Stamp: stamp}, secret, ttl)
}

func sign(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	// Standard claims
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token lifetime
		IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a token string and checks its purpose
func ParseJWT(tokenStr, secret, purpose string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid // Return error if token is invalid
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
