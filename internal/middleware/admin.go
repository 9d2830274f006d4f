package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"brokerage_crm/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ContextActor is the gin context key holding the resolved domain.Actor
const ContextActor = "actor"

// TargetUserParam is the query parameter an administrator uses to act on a client
const TargetUserParam = "target_user_id"

// ActorMiddleware resolves the acting context once per request: the caller's
// identity, whether it holds the Admin role, and the requested target user
func ActorMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor domain.Actor // Anonymous unless a session was validated
		if raw := c.Query(TargetUserParam); raw != "" {
			target, err := strconv.ParseUint(raw, 10, 64)
			// Check the target is a real id
			if err != nil || target == 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + TargetUserParam})
				return
			}
			actor.TargetUserID = uint(target) // Rejected later unless the caller is an admin
		}
		if userID, exists := c.Get(ContextUserID); exists {
			var user domain.User // Fetch user with roles from database
			if err := db.WithContext(c.Request.Context()).Preload("Roles").First(&user, userID).Error; err != nil {
				// Token outlived its identity
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			actor.UserID = user.ID                       // Acting identity
			actor.Admin = user.HasRole(domain.RoleAdmin) // Role is read from the database, never from the token
		}
		c.Set(ContextActor, actor) // Store actor in context
		c.Next()                   // Proceed to the next handler
	}
}

// AdminOnlyMiddleware rejects callers without the Admin role
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c) // Resolved by ActorMiddleware
		// Check if there is an identity at all
		if !actor.Authenticated() {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if user role is admin
		if !actor.Admin {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}

// ActorFrom returns the acting context of the request, anonymous if unresolved
func ActorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(ContextActor); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}
