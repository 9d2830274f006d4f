package api

import (
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"time"     // Cookie lifetime

	"brokerage_crm/internal/wizard" // Credentials

	"github.com/gin-gonic/gin" // Gin web framework
)

// CookiePolicy describes the session cookie issued alongside tokens
type CookiePolicy struct {
	Name   string        // Cookie name, empty disables the cookie
	Secure bool          // HTTPS only
	TTL    time.Duration // Matches the session token lifetime
}

// set stores the session token in an HttpOnly cookie
func (p CookiePolicy) set(c *gin.Context, token string) {
	if p.Name == "" || token == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(p.Name, token, int(p.TTL.Seconds()), "/", "", p.Secure, true)
}

// clear expires the session cookie
func (p CookiePolicy) clear(c *gin.Context) {
	if p.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(p.Name, "", -1, "/", "", p.Secure, true)
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token    string   `json:"token"`     // JWT session token
	UserID   uint     `json:"user_id"`   // Authenticated identity
	Roles    []string `json:"roles"`     // Role names
	NextPage string   `json:"next_page"` // Where the client continues
}

// Request struct for credential reset
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`    // Reset token delivered out of band
	Password string `json:"password" binding:"required"` // New credential
}

// LoginHandler authenticates an identity and returns a session token
func LoginHandler(w *wizard.Wizard, cookie CookiePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // If binding fails, return bad request
			return
		}
		token, user, err := w.Login(c.Request.Context(), req.Email, req.Password)
		if errors.Is(err, wizard.ErrInvalidCredentials) {
			// Unknown email and wrong password look the same
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		roles := make([]string, 0, len(user.Roles)) // Role names for the client
		for _, r := range user.Roles {
			roles = append(roles, r.Name)
		}
		cookie.set(c, token) // Browser session
		c.JSON(http.StatusOK, AuthResponse{Token: token, UserID: user.ID, Roles: roles, NextPage: w.NextPage(c.Request.Context(), user)})
	}
}

// LogoutHandler clears the session cookie
func LogoutHandler(cookie CookiePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie.clear(c)
		c.Status(http.StatusNoContent)
	}
}

// ResetPasswordHandler sets a credential from a reset token
func ResetPasswordHandler(w *wizard.Wizard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // If binding fails, return bad request
			return
		}
		if err := w.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}

// IssueResetHandler sends a fresh reset token to a client (admin only)
func IssueResetHandler(w *wizard.Wizard) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := uintParam(c, "id") // Client identity
		if !ok {
			return
		}
		if err := w.IssueReset(c.Request.Context(), userID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Reset token issued"})
	}
}
