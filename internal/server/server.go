// Package server assembles the application and runs the HTTP listener.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/appetora/backend/config"
	"github.com/appetora/backend/internal/api"
	"github.com/appetora/backend/internal/database"
	"github.com/appetora/backend/internal/middleware"
	"github.com/appetora/backend/internal/service"
	"github.com/appetora/backend/internal/usage"
)

const shutdownTimeout = 10 * time.Second

// Server owns the HTTP listener and the wired dependencies.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	http   *http.Server
}

// New connects the databases, runs migrations, and wires every handler.
func New(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		// Burst limiting is best effort; the quota core does not need Redis.
		log.Printf("WARNING: redis unavailable, rate limiting disabled: %v", err)
		redisClient = nil
	}

	var storage *config.S3Config
	if cfg.S3Bucket != "" {
		storage, err = config.NewS3Config(context.Background(), cfg)
		if err != nil {
			log.Printf("WARNING: object storage unavailable, uploads disabled: %v", err)
			storage = nil
		}
	}

	store := usage.NewGormStore(db)
	policies := usage.NewUserPolicies(db, cfg.DailyImportLimit)
	guard := usage.NewQuotaGuard(store, policies)
	recorder := usage.NewRecorder(store)
	aggregator := usage.NewAggregator(store, policies)

	engine := gin.Default()
	engine.Use(middleware.CORS())

	api.RegisterRoutes(engine, api.Deps{
		DB:          db,
		Redis:       redisClient,
		Config:      cfg,
		Storage:     storage,
		AuthService: service.NewAuthService(db, cfg.JWTSecret, cfg.AdminPassword, cfg.DailyImportLimit),
		PlanService: service.NewPlanService(db),
		Importer:    service.NewImportService(cfg),
		Store:       store,
		Policies:    policies,
		Guard:       guard,
		Recorder:    recorder,
		Aggregator:  aggregator,
	})

	return &Server{
		cfg:    cfg,
		engine: engine,
		http: &http.Server{
			Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
			Handler: engine,
		},
	}, nil
}

// Run serves until SIGINT/SIGTERM, then drains in-flight requests.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
