// Package api wires the HTTP surface: route registration, request
// binding, and the mapping from domain errors to status codes.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/appetora/backend/config"
	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/service"
	"github.com/appetora/backend/internal/usage"
)

// Deps carries everything the handlers need. Redis and Storage are
// optional; the routes that need them degrade when absent.
type Deps struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Config      *config.Config
	Storage     *config.S3Config
	AuthService *service.AuthService
	PlanService *service.PlanService
	Importer    *service.ImportService
	Store       usage.CounterStore
	Policies    usage.PolicySource
	Guard       *usage.QuotaGuard
	Recorder    *usage.Recorder
	Aggregator  *usage.Aggregator
}

// RegisterRoutes mounts the full API under /api/v1 plus the health probes.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	var importLimiter, loginLimiter *middleware.RateLimiter
	if deps.Redis != nil {
		importLimiter = middleware.NewImportBurstLimiter(deps.Redis)
		loginLimiter = middleware.NewLoginLimiter(deps.Redis)
	}

	v1 := router.Group("/api/v1")
	v1.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	NewAuthHandler(deps.DB, deps.AuthService, loginLimiter).RegisterRoutes(v1)
	NewAdminHandler(deps.DB, deps.AuthService, deps.Aggregator).RegisterRoutes(v1)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(deps.AuthService))
	{
		NewRecipeHandler(deps.DB).RegisterRoutes(authed)
		NewPlanHandler(deps.PlanService).RegisterRoutes(authed)
		NewHistoryHandler(deps.DB).RegisterRoutes(authed)
		NewUsageHandler(deps.Store, deps.Policies).RegisterRoutes(authed)
		NewImportHandler(deps.Importer, deps.Guard, deps.Recorder, usage.Rates{
			InputNanosPerUnit:  deps.Config.InputNanosPerUnit,
			OutputNanosPerUnit: deps.Config.OutputNanosPerUnit,
		}, importLimiter).RegisterRoutes(authed)
		if deps.Storage != nil {
			NewUploadHandler(deps.Storage).RegisterRoutes(authed)
		}
	}
}
