package middleware

import (
	"context"  // Request scoped lookup
	"net/http" // HTTP status codes

	"group_fund/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// UserLookup loads the current role of a user
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
}

// AdminOnlyMiddleware checks the user's role from the store on each request,
// so a revoked admin loses access before their token expires
func AdminOnlyMiddleware(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get("userID") // Get userID from context
		userID, ok := v.(uint)
		if !exists || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
