package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/heirloom-backend/internal/platform/ctxutil"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type ActorMiddleware struct {
	log *logger.Logger
}

func NewActorMiddleware(log *logger.Logger) *ActorMiddleware {
	return &ActorMiddleware{log: log.With("Middleware", "ActorMiddleware")}
}

// RequireActor rejects requests that reached a mutating route without an actor id.
// It must run after AttachRequestContext.
func (am *ActorMiddleware) RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctxutil.ActorID(c.Request.Context()) == "" {
			am.log.Debug("missing actor", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing " + headerActorID + " header", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}
