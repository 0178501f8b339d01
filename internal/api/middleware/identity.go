package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
	actorKey       = "actor"
)

// Identity читает пользователя из заголовков шлюза аутентификации.
// Заголовки выставляет шлюз после проверки сессии, сам сервис токены не проверяет.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(UserIDHeader))
		role, ok := model.ParseRole(c.GetHeader(UserRoleHeader))
		if id == "" || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}

		c.Set(actorKey, model.Actor{ID: id, Role: role})
		c.Next()
	}
}

// RequireRole пропускает только указанные роли
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}
		if !slices.Contains(roles, actor.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "no permission for this action",
			})
			return
		}
		c.Next()
	}
}

// ActorFrom пользователь, установленный Identity
func ActorFrom(c *gin.Context) (model.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

// MustActor для обработчиков за Identity
func MustActor(c *gin.Context) model.Actor {
	actor, ok := ActorFrom(c)
	if !ok {
		panic("middleware: actor is not set, route is missing Identity()")
	}
	return actor
}
