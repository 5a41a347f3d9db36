package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vinoplan-backend/internal/http/response"
)

const headerAdminToken = "X-Admin-Token"

// RequireAdminToken guards operator endpoints. An empty token leaves them open, which
// only makes sense for local development.
func RequireAdminToken(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := strings.TrimSpace(c.GetHeader(headerAdminToken))
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("admin token required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
