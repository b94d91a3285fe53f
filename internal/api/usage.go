package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/usage"
)

// UsageHandler exposes a user's own quota standing
type UsageHandler struct {
	store    usage.CounterStore
	policies usage.PolicySource
}

func NewUsageHandler(store usage.CounterStore, policies usage.PolicySource) *UsageHandler {
	return &UsageHandler{store: store, policies: policies}
}

func (h *UsageHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/usage", h.Today)
}

func (h *UsageHandler) Today(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	today := usage.Today()

	record, err := h.store.Get(c.Request.Context(), userID, today)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	limit, unlimited, err := h.policies.QuotaPolicy(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}

	remaining := limit - record.ActionCount
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"date":       today,
		"used":       record.ActionCount,
		"limit":      limit,
		"unlimited":  unlimited,
		"remaining":  remaining,
		"cost_usd":   float64(record.CostMicros) / 1e6,
		"tokens_in":  record.InputUnits,
		"tokens_out": record.OutputUnits,
	})
}
