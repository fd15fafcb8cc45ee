package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/invoicestream/invoicing_backend/utils"
)

// UserMiddleware resolves the caller identity into the request context. A
// signed bearer token takes precedence; the opaque X-User-Id header (set by
// the gateway) is the fallback. Requests carrying neither pass through and
// are rejected before any core logic runs.
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth := c.Request.Header.Get("Authorization"); auth != "" {
			token := strings.TrimPrefix(auth, "Bearer ")

			validated, err := utils.JwtValidate(token)
			if err != nil || !validated.Valid {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}

			if claim, ok := validated.Claims.(*utils.JwtCustomClaim); ok && claim.UserId != "" {
				c.Request = c.Request.WithContext(
					utils.SetUserIdInContext(c.Request.Context(), claim.UserId))
			}
			c.Next()
			return
		}

		userId := strings.TrimSpace(c.Request.Header.Get("X-User-Id"))
		if userId != "" {
			c.Request = c.Request.WithContext(
				utils.SetUserIdInContext(c.Request.Context(), userId))
		}
		c.Next()
	}
}
