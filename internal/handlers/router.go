package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillproof/testing-service/internal/config"
	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
	"github.com/skillproof/testing-service/internal/services"
	"github.com/skillproof/testing-service/internal/utils"
	"github.com/skillproof/testing-service/internal/validator"
)

type HandlerManager struct {
	lifecycleHandler *LifecycleHandler
	authMiddleware   *CasdoorAuthMiddleware
	serviceManager   services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		lifecycleHandler: NewLifecycleHandler(serviceManager.Lifecycle(), validator, logger),
		authMiddleware:   NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
		serviceManager:   serviceManager,
	}
}

// SetupRoutes sets up all API routes.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		tests := v1.Group("/tests")
		{
			// Candidate-facing: the caller acts on their own assignment.
			tests.GET("/start", hm.authMiddleware.RequireRoleMiddleware(models.RoleCandidate), hm.lifecycleHandler.StartTest)
			tests.POST("/submit", hm.authMiddleware.RequireRoleMiddleware(models.RoleCandidate), hm.lifecycleHandler.SubmitTest)

			// Administrative: assignment management for any candidate.
			tests.POST("/assign", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.lifecycleHandler.AssignTest)
			tests.POST("/reassign", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.lifecycleHandler.ReassignTest)
			tests.GET("/reassign/pending", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.lifecycleHandler.ListPendingReassignments)
		}
	}
}

// HealthCheck reports service and dependency health.
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "testing-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
