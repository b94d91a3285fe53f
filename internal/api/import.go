package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/service"
	"github.com/appetora/backend/internal/usage"
)

// maxImageBytes caps inline image payloads at 8 MB of decoded data.
const maxImageBytes = 8 * 1024 * 1024

// ImportHandler drives the metered AI recipe extraction flow
type ImportHandler struct {
	importer     *service.ImportService
	guard        *usage.QuotaGuard
	recorder     *usage.Recorder
	rates        usage.Rates
	burstLimiter *middleware.RateLimiter
}

func NewImportHandler(importer *service.ImportService, guard *usage.QuotaGuard, recorder *usage.Recorder, rates usage.Rates, burstLimiter *middleware.RateLimiter) *ImportHandler {
	return &ImportHandler{
		importer:     importer,
		guard:        guard,
		recorder:     recorder,
		rates:        rates,
		burstLimiter: burstLimiter,
	}
}

func (h *ImportHandler) RegisterRoutes(router *gin.RouterGroup) {
	imports := router.Group("/import")
	if h.burstLimiter != nil {
		imports.Use(h.burstLimiter.ByUser())
	}
	{
		imports.POST("", h.Import)
		imports.POST("/image", h.ImportImage)
	}
}

type importRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

func (h *ImportHandler) Import(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL or text required"})
		return
	}

	sourceURL := strings.TrimSpace(req.URL)
	sourceText := strings.TrimSpace(req.Text)
	if sourceURL == "" && sourceText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL or text required"})
		return
	}
	if sourceURL != "" && isVideoURL(sourceURL) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Video links are not supported, paste the recipe text instead"})
		return
	}

	decision, err := h.guard.Check(c.Request.Context(), userID, usage.Today())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import temporarily unavailable"})
		return
	}
	if !decision.Allowed {
		quotaExceeded(c, decision.CurrentCount, decision.Limit)
		return
	}

	var (
		recipe     *service.ExtractedRecipe
		tokenUsage service.TokenUsage
	)
	if sourceURL != "" {
		recipe, tokenUsage, err = h.importer.ExtractFromURL(c.Request.Context(), sourceURL)
	} else {
		recipe, tokenUsage, err = h.importer.ExtractFromText(c.Request.Context(), sourceText, "pasted text")
	}
	if err != nil {
		h.extractionError(c, err)
		return
	}

	h.settle(c, userID, recipe, tokenUsage)
}

type importImageRequest struct {
	Image    string `json:"image" binding:"required"`
	MimeType string `json:"mime_type"`
}

func (h *ImportHandler) ImportImage(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req importImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image data required"})
		return
	}

	// Reject oversized payloads before decoding the whole thing.
	if base64.StdEncoding.DecodedLen(len(req.Image)) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds the 8 MB limit"})
		return
	}
	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image must be base64 encoded"})
		return
	}
	if len(imageData) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image exceeds the 8 MB limit"})
		return
	}
	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, req.Image)

	decision, err := h.guard.Check(c.Request.Context(), userID, usage.Today())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import temporarily unavailable"})
		return
	}
	if !decision.Allowed {
		quotaExceeded(c, decision.CurrentCount, decision.Limit)
		return
	}

	recipe, tokenUsage, err := h.importer.ExtractFromImage(c.Request.Context(), dataURL)
	if err != nil {
		h.extractionError(c, err)
		return
	}

	h.settle(c, userID, recipe, tokenUsage)
}

// settle consumes one quota action and records token usage, then responds.
// The extraction already succeeded, so the user gets the recipe even when
// token recording fails.
func (h *ImportHandler) settle(c *gin.Context, userID uuid.UUID, recipe *service.ExtractedRecipe, tokenUsage service.TokenUsage) {
	today := usage.Today()

	// The extraction was paid for. If the client disconnected while it ran,
	// the request context is already canceled, so the quota claim and the
	// usage recording run detached from it.
	ctx := context.WithoutCancel(c.Request.Context())

	if _, err := h.guard.Consume(ctx, userID, today); err != nil {
		var quotaErr *usage.QuotaExceededError
		if errors.As(err, &quotaErr) {
			quotaExceeded(c, quotaErr.CurrentCount, quotaErr.Limit)
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import temporarily unavailable"})
		return
	}

	delta := usage.Delta{
		InputUnits:  tokenUsage.InputUnits,
		OutputUnits: tokenUsage.OutputUnits,
		CostMicros:  h.rates.EstimateMicros(tokenUsage.InputUnits, tokenUsage.OutputUnits),
	}
	if !delta.IsZero() {
		if _, err := h.recorder.Increment(ctx, userID, today, delta); err != nil {
			log.Printf("WARNING: usage recording incomplete for user %s: %v", userID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

func (h *ImportHandler) extractionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotEnoughText):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Not enough text to extract a recipe from"})
	case errors.Is(err, service.ErrUnreadableRecipe), errors.Is(err, service.ErrEmptyModelResponse):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not find a recipe in that source"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Import timed out, try again"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Recipe extraction failed"})
	}
}

func quotaExceeded(c *gin.Context, current, limit int64) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": "Daily import limit reached",
		"used":  current,
		"limit": limit,
	})
}

// isVideoURL reports whether the URL points at a video platform we cannot
// read recipe text from.
func isVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	switch host {
	case "youtube.com", "m.youtube.com", "youtu.be", "youtube-nocookie.com":
		return true
	}
	return false
}
