package middleware

import (
	"context"
	"net/http"
	"strings"

	"bakery_orders/internal/services"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// TokenResolver turns a bearer token into the calling actor.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*services.Actor, error)
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so a token query parameter is accepted as well.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[len("bearer "):])
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a valid token.
func RequireAuth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		actor, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// OptionalAuth attaches the actor when a valid token is present and lets
// guests through otherwise. A token that is present but invalid is rejected.
func OptionalAuth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		actor, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireStaff must run after RequireAuth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentActor(c).IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff access required"})
			return
		}
		c.Next()
	}
}

// CurrentActor returns the authenticated actor, or nil for guests.
func CurrentActor(c *gin.Context) *services.Actor {
	value, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	actor, _ := value.(*services.Actor)
	return actor
}
