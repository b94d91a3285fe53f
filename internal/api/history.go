package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/models"
	"github.com/appetora/backend/internal/usage"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
)

// HistoryHandler records which recipes were actually cooked on which day
type HistoryHandler struct {
	db *gorm.DB
}

func NewHistoryHandler(db *gorm.DB) *HistoryHandler {
	return &HistoryHandler{db: db}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	history := router.Group("/history")
	{
		history.GET("", h.List)
		history.POST("", h.Record)
	}
}

func (h *HistoryHandler) List(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Limit must be a positive number"})
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	var entries []models.HistoryEntry
	err := h.db.Where("user_id = ?", userID).
		Order("date DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

type recordHistoryRequest struct {
	Date     string `json:"date"`
	RecipeID string `json:"recipe_id" binding:"required"`
}

func (h *HistoryHandler) Record(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req recordHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Recipe ID required"})
		return
	}

	recipeID, err := uuid.Parse(req.RecipeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe ID"})
		return
	}

	date := req.Date
	if date == "" {
		date = usage.Today()
	} else if _, err := time.Parse(usage.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
		return
	}

	entry := models.HistoryEntry{
		UserID:   userID,
		Date:     date,
		RecipeID: recipeID,
	}
	// Upsert on (user, date, recipe): marking the same meal twice is a no-op.
	err = h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}, {Name: "recipe_id"}},
		DoNothing: true,
	}).Create(&entry).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
