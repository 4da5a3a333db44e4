package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireAccessToken verifies an access token and injects identity into request context.
// It does not perform role checks; those belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if !authenticate(c, m, tok) {
			return
		}
		c.Next()
	}
}

// OptionalAccessToken injects identity when a bearer token is sent and lets
// anonymous requests through. A token that is sent but invalid is still rejected.
func OptionalAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		if !authenticate(c, m, tok) {
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
		return "", false
	}
	return strings.TrimPrefix(raw, bearerPrefix), true
}

func authenticate(c *gin.Context, m *Manager, tok string) bool {
	claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return false
	}

	id := claims.Identity()
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id.UserID, id.Role))

	// Also store on gin context for handler convenience.
	c.Set("user_id", id.UserID)
	c.Set("role", id.Role)
	return true
}
