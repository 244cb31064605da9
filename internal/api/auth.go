package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-disaster-response/internal/disasters"
)

const actorContextKey = "actor"

// AuthMiddleware derives the acting user from request headers. The
// bearer token is not validated beyond presence; the admin role is
// granted to the configured admin user id.
func AuthMiddleware(adminID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		userID := c.GetHeader("X-User-ID")

		if token == "" || userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		role := disasters.RoleContributor
		if userID == adminID {
			role = disasters.RoleAdmin
		}

		slog.Debug("authenticated user", "user_id", userID, "role", role)
		c.Set(actorContextKey, disasters.Actor{ID: userID, Role: role})
		c.Next()
	}
}

func actorFrom(c *gin.Context) disasters.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(disasters.Actor); ok {
			return actor
		}
	}
	return disasters.Actor{}
}
