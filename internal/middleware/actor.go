package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/service"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	actorKey = "actor"
)

// Identity reads the caller identity set by the upstream gateway. Requests
// without a user ID are rejected.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		role := service.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if role == "" {
			role = service.RoleStudent
		}
		if id == "" || (role != service.RoleStudent && role != service.RoleInstructor) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Message: "Missing or invalid identity headers",
				Details: []string{HeaderUserID + " is required; " + HeaderUserRole + " must be student or instructor"},
			})
			return
		}
		c.Set(actorKey, service.Actor{ID: id, Role: role})
		c.Next()
	}
}

// RequireInstructor rejects non-instructor callers. It must run after Identity.
func RequireInstructor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsInstructor() {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: "Instructor role required"})
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) service.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(service.Actor); ok {
			return a
		}
	}
	return service.Actor{}
}
