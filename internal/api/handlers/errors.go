package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// writeError maps service errors onto HTTP responses
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch e := err.(type) {
	case *errors.ErrNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Error()})
	case *errors.ErrValidation:
		resp := gin.H{"error": e.Error()}
		if len(e.Fields) > 0 {
			resp["fields"] = e.Fields
		}
		c.JSON(http.StatusBadRequest, resp)
	case *errors.ErrInvalidTransition:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Error()})
	case *errors.ErrConflict:
		c.JSON(http.StatusConflict, gin.H{"error": e.Error()})
	case *errors.ErrUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": e.Error()})
	default:
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
