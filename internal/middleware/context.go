package middleware

import "github.com/gin-gonic/gin"

// SessionIDKey is the gin context key holding the recipe session selected
// by a session token.
const SessionIDKey = "session_id"

// SessionIDFromContext returns the recipe session ID set by
// SessionTokenMiddleware, or "" when the request carried no token.
func SessionIDFromContext(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
