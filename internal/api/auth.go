package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/models"
	"github.com/appetora/backend/internal/service"
)

// sessionMaxAge matches the session token TTL.
const sessionMaxAge = 7 * 24 * 3600

// AuthHandler handles account registration and sessions
type AuthHandler struct {
	db           *gorm.DB
	authService  *service.AuthService
	loginLimiter *middleware.RateLimiter
}

func NewAuthHandler(db *gorm.DB, authService *service.AuthService, loginLimiter *middleware.RateLimiter) *AuthHandler {
	return &AuthHandler{
		db:           db,
		authService:  authService,
		loginLimiter: loginLimiter,
	}
}

// RegisterRoutes registers the auth routes
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		if h.loginLimiter != nil {
			auth.POST("/login", h.loginLimiter.ByClientIP(), h.Login)
		} else {
			auth.POST("/login", h.Login)
		}
		auth.GET("/me", middleware.AuthMiddleware(h.authService), h.Me)
		auth.POST("/logout", h.Logout)
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}

	user, token, err := h.authService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"user": userView(user), "token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password required"})
		return
	}

	user, token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"user": userView(user), "token": token})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userView(&user)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, sessionMaxAge, "/", "", false, true)
}

func userView(user *models.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	}
}
