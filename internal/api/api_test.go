package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/appetora/backend/config"
	"github.com/appetora/backend/internal/models"
	"github.com/appetora/backend/internal/service"
	"github.com/appetora/backend/internal/usage"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	auth   *service.AuthService
	store  *usage.GormStore
}

// setupEnv wires the full route table against an in-memory database and,
// when aiHandler is non-nil, a stub chat-completions endpoint.
func setupEnv(t *testing.T, aiHandler http.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Recipe{},
		&models.SavedPlan{},
		&models.HistoryEntry{},
		&models.UsageRecord{},
	))

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		AdminPassword:      "admin-pass",
		AIAPIKey:           "test-key",
		AIModel:            "gpt-4o-mini",
		ImportTimeout:      5 * time.Second,
		DailyImportLimit:   5,
		InputNanosPerUnit:  150,
		OutputNanosPerUnit: 600,
	}
	if aiHandler != nil {
		ai := httptest.NewServer(aiHandler)
		t.Cleanup(ai.Close)
		cfg.AIAPIURL = ai.URL
	}

	store := usage.NewGormStore(db)
	policies := usage.NewUserPolicies(db, cfg.DailyImportLimit)
	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.AdminPassword, cfg.DailyImportLimit)

	router := gin.New()
	RegisterRoutes(router, Deps{
		DB:          db,
		Config:      cfg,
		AuthService: authService,
		PlanService: service.NewPlanService(db),
		Importer:    service.NewImportService(cfg),
		Store:       store,
		Policies:    policies,
		Guard:       usage.NewQuotaGuard(store, policies),
		Recorder:    usage.NewRecorder(store),
		Aggregator:  usage.NewAggregator(store, policies),
	})

	return &testEnv{router: router, db: db, auth: authService, store: store}
}

// registerUser creates an account through the API and returns its token.
func (e *testEnv) registerUser(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	user, token, err := e.auth.Register("", email, "password123")
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
