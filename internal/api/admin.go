package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/models"
	"github.com/appetora/backend/internal/service"
	"github.com/appetora/backend/internal/usage"
)

// AdminHandler serves the operator console endpoints
type AdminHandler struct {
	db          *gorm.DB
	authService *service.AuthService
	aggregator  *usage.Aggregator
}

func NewAdminHandler(db *gorm.DB, authService *service.AuthService, aggregator *usage.Aggregator) *AdminHandler {
	return &AdminHandler{
		db:          db,
		authService: authService,
		aggregator:  aggregator,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin")
	admin.POST("/login", h.Login)

	guarded := admin.Group("")
	guarded.Use(middleware.AdminMiddleware(h.authService))
	{
		guarded.GET("/ping", h.Ping)
		guarded.GET("/metrics", h.Metrics)
		guarded.GET("/users", h.Users)
		guarded.PUT("/users/:id/unlimited", h.SetUnlimited)
		guarded.DELETE("/users/:id", h.DeleteUser)
	}
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password required"})
		return
	}

	token, err := h.authService.AdminLogin(req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AdminHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Metrics returns the per-user usage breakdown for one day.
func (h *AdminHandler) Metrics(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = usage.Today()
	} else if _, err := time.Parse(usage.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD"})
		return
	}

	report, err := h.aggregator.DailyReport(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	ids := make([]uuid.UUID, 0, len(report.PerUser))
	for _, row := range report.PerUser {
		ids = append(ids, row.UserID)
	}
	emails := h.emailIndex(ids)

	rows := make([]gin.H, 0, len(report.PerUser))
	for _, row := range report.PerUser {
		rows = append(rows, gin.H{
			"user_id":    row.UserID,
			"email":      emails[row.UserID],
			"calls":      row.ActionCount,
			"tokens_in":  row.InputUnits,
			"tokens_out": row.OutputUnits,
			"cost_usd":   float64(row.CostMicros) / 1e6,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"date":           report.Date,
		"total_calls":    report.TotalActions,
		"total_cost_usd": float64(report.TotalCostMicros) / 1e6,
		"users":          rows,
	})
}

// Users returns the all-users activity overview.
func (h *AdminHandler) Users(c *gin.Context) {
	report, err := h.aggregator.AllUsersReport(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
		return
	}

	ids := make([]uuid.UUID, 0, len(report.Users))
	for _, s := range report.Users {
		ids = append(ids, s.UserID)
	}
	users := h.userIndex(ids)

	rows := make([]gin.H, 0, len(report.Users))
	for _, s := range report.Users {
		u := users[s.UserID]
		row := gin.H{
			"user_id":       s.UserID,
			"email":         u.Email,
			"name":          u.Name,
			"unlimited":     u.Unlimited,
			"daily_limit":   u.DailyLimit,
			"calls_today":   s.ActionsToday,
			"calls_total":   s.TotalActionsAllTime,
			"last_activity": s.LastActivityAt,
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, gin.H{
		"total_calls_today": report.TotalActionsToday,
		"total_calls":       report.TotalActionsAllTime,
		"users":             rows,
	})
}

type setUnlimitedRequest struct {
	Unlimited *bool `json:"unlimited" binding:"required"`
}

// SetUnlimited toggles a user's quota exemption. Applying the current
// value again is a no-op.
func (h *AdminHandler) SetUnlimited(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req setUnlimitedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unlimited flag required"})
		return
	}

	res := h.db.Model(&models.User{}).Where("id = ?", userID).Update("unlimited", *req.Unlimited)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "unlimited": *req.Unlimited})
}

// DeleteUser removes the account and everything keyed to it. Stored
// objects in the blob bucket are left in place.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.UsageRecord{},
			&models.HistoryEntry{},
			&models.SavedPlan{},
			&models.Recipe{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		// Hard delete so the email can be registered again.
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AdminHandler) emailIndex(ids []uuid.UUID) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(ids))
	for id, u := range h.userIndex(ids) {
		out[id] = u.Email
	}
	return out
}

func (h *AdminHandler) userIndex(ids []uuid.UUID) map[uuid.UUID]models.User {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out
	}
	var users []models.User
	if err := h.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return out
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}
