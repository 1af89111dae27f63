package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trainhub/trainhub-server/internal/model"
)

// handleError maps service errors onto HTTP responses. Anything unclassified
// is an internal error; its detail stays in the log, not on the wire.
func handleError(c *gin.Context, err error) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrInsufficientCredit):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "insufficient credit"})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry"})
	case errors.Is(err, model.ErrAuthRevoked):
		c.JSON(http.StatusConflict, gin.H{"error": "calendar authorization revoked, re-consent required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
