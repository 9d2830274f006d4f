package utils

import (
	"crypto/rand"  // Random stamps
	"encoding/hex" // Stamp encoding

	"golang.org/x/crypto/bcrypt" // Password hashing
)

// HashPassword hashes a plaintext credential with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a stored hash with a plaintext credential
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false // No credential set yet
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewSecurityStamp returns a fresh random stamp
func NewSecurityStamp() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
