package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ClientIDHeader identifies first-party clients.
const ClientIDHeader = "X-SaltyBytes-Identifier"

// CheckIDHeader rejects requests whose X-SaltyBytes-Identifier header does
// not match id.
func CheckIDHeader(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(ClientIDHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(id)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
