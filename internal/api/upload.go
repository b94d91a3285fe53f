package api

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/appetora/backend/config"
	"github.com/appetora/backend/internal/middleware"
)

const presignTTL = 15 * time.Minute

// UploadHandler hands out presigned object storage URLs. Every key lives
// under the owning user's ID prefix and reads are refused across prefixes.
type UploadHandler struct {
	storage *config.S3Config
}

func NewUploadHandler(storage *config.S3Config) *UploadHandler {
	return &UploadHandler{storage: storage}
}

func (h *UploadHandler) RegisterRoutes(router *gin.RouterGroup) {
	uploads := router.Group("/uploads")
	{
		uploads.POST("/url", h.UploadURL)
		uploads.GET("/view", h.ViewURL)
	}
}

type uploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
}

func (h *UploadHandler) UploadURL(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Filename required"})
		return
	}

	filename := sanitizeFilename(req.Filename)
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%d-%s", userID, time.Now().UnixMilli(), filename)
	url, err := h.storage.PresignUpload(c.Request.Context(), key, contentType, presignTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url, "key": key})
}

func (h *UploadHandler) ViewURL(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Key required"})
		return
	}
	if !ownsKey(userID, key) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your object"})
		return
	}

	url, err := h.storage.PresignView(c.Request.Context(), key, presignTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create view URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func ownsKey(userID uuid.UUID, key string) bool {
	cleaned := path.Clean(key)
	return strings.HasPrefix(cleaned, userID.String()+"/")
}

// sanitizeFilename keeps the base name and strips characters that do not
// belong in an object key.
func sanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" || out == "." || out == ".." {
		return ""
	}
	return out
}
