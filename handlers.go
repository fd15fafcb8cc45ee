package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/invoicestream/invoicing_backend/utils"
)

// requireUser rejects requests carrying no caller identity. Returns false
// after writing the response when the request must not proceed.
func requireUser(c *gin.Context) bool {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok || userId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-Id header is required"})
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP statuses: rejected input is a
// 400, a missing or foreign-owned record is a 404, anything else a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
