package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/repository"
	"go.uber.org/zap"
)

// respondServiceError maps a service error onto a JSON response. Lookups that
// miss answer 404; anything else is a 500 carrying the error text.
func respondServiceError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	var nf repository.NotFoundError
	if errors.As(err, &nf) {
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
		return
	}
	logger.Get().Error(msg, append(fields, zap.Error(err))...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg + ": " + err.Error()})
}
