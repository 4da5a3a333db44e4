package rbac

import (
	"net/http"

	"voice-dialer/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole allows access if the caller has any of the provided roles.
// Rules:
// - admin bypasses all checks
// - a missing identity is 401, a disallowed role is 403
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := roleSet(allowed)
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !permitted(allowedSet, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RoleIfAuthenticated lets anonymous callers through but holds authenticated
// ones to the allowed roles. Use it after auth.OptionalAccessToken.
func RoleIfAuthenticated(allowed ...string) gin.HandlerFunc {
	allowedSet := roleSet(allowed)
	return func(c *gin.Context) {
		if _, err := auth.UserID(c.Request.Context()); err != nil {
			c.Next()
			return
		}
		role, _ := auth.Role(c.Request.Context())
		if !permitted(allowedSet, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func roleSet(roles []string) map[string]struct{} {
	out := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		out[r] = struct{}{}
	}
	return out
}

func permitted(allowed map[string]struct{}, role string) bool {
	if IsAdmin(role) {
		return true
	}
	_, ok := allowed[role]
	return ok
}
