package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity headers set by the authenticating edge proxy. This service
// trusts them; session issuance and verification happen upstream.
const (
	UserIDHeader = "X-User-ID"
	RoleHeader   = "X-User-Role"

	userIDKey = "identity_user_id"
	roleKey   = "identity_role"
)

// Roles recognized on the role header
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity parses the caller identity headers into the gin context. Missing
// or malformed headers leave the request anonymous; route guards decide
// whether that is acceptable.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader(UserIDHeader); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				c.Set(userIDKey, id)
			}
		}

		role := c.GetHeader(RoleHeader)
		if role == "" {
			role = RoleUser
		}
		c.Set(roleKey, role)

		c.Next()
	}
}

// GetUserID retrieves the authenticated caller's ID from the gin context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(userIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetRole retrieves the caller's role from the gin context
func GetRole(c *gin.Context) string {
	if v, exists := c.Get(roleKey); exists {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return RoleUser
}

// RequireUser aborts with 401 when no authenticated user is present
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(401, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the caller carries the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(401, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Authentication required",
				},
			})
			return
		}
		if GetRole(c) != RoleAdmin {
			c.AbortWithStatusJSON(403, gin.H{
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Admin role required",
				},
			})
			return
		}
		c.Next()
	}
}
