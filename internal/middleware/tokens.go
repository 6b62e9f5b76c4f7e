package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/service"
)

// SessionTokenHeader carries a session token for clients that cannot put it
// in the query string.
const SessionTokenHeader = "X-Session-Token"

// SessionTokenMiddleware resolves an optional session token from the
// "session" query parameter or the X-Session-Token header. Websocket clients
// cannot always set headers, hence the query parameter. A request without a
// token passes through untouched; an invalid one is rejected.
func SessionTokenMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimSpace(c.Query("session"))
		if tokenString == "" {
			tokenString = strings.TrimSpace(c.GetHeader(SessionTokenHeader))
		}
		if tokenString == "" {
			c.Next()
			return
		}

		sessionID, err := service.ParseSessionToken(tokenString, cfg.EnvVars.SessionSigningKey)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session token"})
			c.Abort()
			return
		}

		c.Set(SessionIDKey, sessionID)
		c.Next()
	}
}
