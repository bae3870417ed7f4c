package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKeyAdmin holds the authenticated admin email in the gin context.
const ContextKeyAdmin = "admin_email"

// RequireAdmin rejects requests without a valid session cookie.
func RequireAdmin(sessions *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, err := sessions.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ContextKeyAdmin, claims.Subject)
		c.Next()
	}
}
