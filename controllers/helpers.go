package controllers

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"conference-abstracts-api/config"
	"conference-abstracts-api/services"

	"github.com/gin-gonic/gin"
)

var (
	servicesMu       sync.Mutex
	abstractServices *services.Services
)

// SetServices replaces the service bundle used by the handlers.
func SetServices(s *services.Services) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	abstractServices = s
}

// getServices returns the configured bundle, building the gorm-backed one on first use.
func getServices() *services.Services {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	if abstractServices == nil {
		abstractServices = services.NewDefaultServices(config.DB)
	}
	return abstractServices
}

// currentActor reads the caller set by middleware.AuthMiddleware.
func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := c.Get("userID")
	if !ok {
		return services.Actor{}, false
	}
	id, ok := userID.(int)
	if !ok || id <= 0 {
		return services.Actor{}, false
	}
	roleID, _ := c.Get("roleID")
	role, _ := roleID.(int)
	return services.Actor{UserID: id, RoleID: role}, true
}

func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return services.Actor{}, false
	}
	return actor, true
}

// statusForError maps service error kinds to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateReview), errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
