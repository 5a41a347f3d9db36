package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vinoplan-backend/internal/http/response"
	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
	"github.com/yungbote/vinoplan-backend/internal/services"
)

type IdentityMiddleware struct {
	log      *logger.Logger
	identity services.IdentityService
}

func NewIdentityMiddleware(log *logger.Logger, identity services.IdentityService) *IdentityMiddleware {
	return &IdentityMiddleware{log: log.With("Middleware", "IdentityMiddleware"), identity: identity}
}

// Attach resolves the caller. Requests without a token proceed as anonymous; a token
// that is present but fails verification is refused.
func (im *IdentityMiddleware) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := ctxutil.Caller{Tier: string(tasting.TierAnonymous)}
		if tokenString := bearerToken(c); tokenString != "" {
			verified, err := im.identity.Verify(tokenString)
			if err != nil {
				im.log.Debug("token rejected", "error", err)
				response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
				c.Abort()
				return
			}
			caller = verified
		}
		c.Request = c.Request.WithContext(ctxutil.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
