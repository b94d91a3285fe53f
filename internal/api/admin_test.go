package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appetora/backend/internal/models"
	"github.com/appetora/backend/internal/usage"
)

func adminToken(t *testing.T, env *testEnv) string {
	t.Helper()
	w := env.request(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"password": "admin-pass",
	})
	require.Equal(t, http.StatusOK, w.Code)
	return decodeBody(t, w)["token"].(string)
}

func TestAdminLoginEndpoint(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := adminToken(t, env)
	w = env.request(t, http.MethodGet, "/api/v1/admin/ping", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminEndpointsRejectUserTokens(t *testing.T) {
	env := setupEnv(t, nil)
	_, userToken := env.registerUser(t, "pleb@example.com")

	w := env.request(t, http.MethodGet, "/api/v1/admin/ping", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/admin/ping", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMetrics(t *testing.T) {
	env := setupEnv(t, nil)
	user, _ := env.registerUser(t, "metered@example.com")

	_, err := env.store.ApplyDelta(context.Background(), user.ID, "2026-08-30",
		usage.Delta{Actions: 3, InputUnits: 3000, OutputUnits: 1500, CostMicros: 1350}, usage.NoCeiling)
	require.NoError(t, err)

	token := adminToken(t, env)
	w := env.request(t, http.MethodGet, "/api/v1/admin/metrics?date=2026-08-30", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "2026-08-30", body["date"])
	assert.Equal(t, float64(3), body["total_calls"])
	assert.InDelta(t, 0.00135, body["total_cost_usd"], 1e-9)

	rows := body["users"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "metered@example.com", row["email"])
	assert.Equal(t, float64(3), row["calls"])
}

func TestAdminMetricsRejectsBadDate(t *testing.T) {
	env := setupEnv(t, nil)
	token := adminToken(t, env)

	w := env.request(t, http.MethodGet, "/api/v1/admin/metrics?date=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminUsersOverview(t *testing.T) {
	env := setupEnv(t, nil)
	busy, _ := env.registerUser(t, "busy@example.com")
	env.registerUser(t, "idle@example.com")

	_, err := env.store.ApplyDelta(context.Background(), busy.ID, usage.Today(),
		usage.Delta{Actions: 2}, usage.NoCeiling)
	require.NoError(t, err)

	token := adminToken(t, env)
	w := env.request(t, http.MethodGet, "/api/v1/admin/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["total_calls_today"])
	rows := body["users"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "busy@example.com", rows[0].(map[string]interface{})["email"])
}

func TestAdminSetUnlimited(t *testing.T) {
	env := setupEnv(t, nil)
	user, _ := env.registerUser(t, "upgrade@example.com")
	token := adminToken(t, env)

	w := env.request(t, http.MethodPut, "/api/v1/admin/users/"+user.ID.String()+"/unlimited", token,
		map[string]bool{"unlimited": true})
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, env.db.Where("id = ?", user.ID).First(&stored).Error)
	assert.True(t, stored.Unlimited)

	// Setting the same value again succeeds without changing anything.
	w = env.request(t, http.MethodPut, "/api/v1/admin/users/"+user.ID.String()+"/unlimited", token,
		map[string]bool{"unlimited": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPut, "/api/v1/admin/users/not-a-uuid/unlimited", token,
		map[string]bool{"unlimited": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	env := setupEnv(t, nil)
	user, userToken := env.registerUser(t, "leaver@example.com")
	token := adminToken(t, env)

	w := env.request(t, http.MethodPost, "/api/v1/recipes", userToken, map[string]interface{}{
		"name": "Orphaned dish",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	_, err := env.store.ApplyDelta(context.Background(), user.ID, usage.Today(),
		usage.Delta{Actions: 1}, usage.NoCeiling)
	require.NoError(t, err)

	w = env.request(t, http.MethodDelete, "/api/v1/admin/users/"+user.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var userCount, recipeCount, usageCount int64
	env.db.Model(&models.User{}).Where("id = ?", user.ID).Count(&userCount)
	env.db.Model(&models.Recipe{}).Where("user_id = ?", user.ID).Count(&recipeCount)
	env.db.Model(&models.UsageRecord{}).Where("user_id = ?", user.ID).Count(&usageCount)
	assert.Zero(t, userCount)
	assert.Zero(t, recipeCount)
	assert.Zero(t, usageCount)

	w = env.request(t, http.MethodDelete, "/api/v1/admin/users/"+user.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
