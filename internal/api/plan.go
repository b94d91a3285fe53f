package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/models"
	"github.com/appetora/backend/internal/service"
)

// PlanHandler handles weekly meal plan generation and persistence
type PlanHandler struct {
	planService *service.PlanService
}

func NewPlanHandler(planService *service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

func (h *PlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	plan := router.Group("/plan")
	{
		plan.GET("", h.Generate)
		plan.POST("", h.Save)
		plan.GET("/latest", h.Latest)
	}
}

func (h *PlanHandler) Generate(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	entries, err := h.planService.Generate(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveRecipes) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No active recipes to plan with"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": entries})
}

type savePlanRequest struct {
	Entries []models.PlanEntry `json:"entries" binding:"required"`
}

func (h *PlanHandler) Save(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req savePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan entries required"})
		return
	}

	saved, err := h.planService.Save(c.Request.Context(), userID, req.Entries)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPlan) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Plan has no usable entries"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": saved})
}

func (h *PlanHandler) Latest(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	saved, err := h.planService.Latest(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNoSavedPlan) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No saved plan"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": saved})
}
