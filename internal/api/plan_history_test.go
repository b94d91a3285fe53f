package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appetora/backend/internal/models"
)

func seedRecipes(t *testing.T, env *testEnv, token string, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		w := env.request(t, http.MethodPost, "/api/v1/recipes", token, map[string]interface{}{"name": name})
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, decodeBody(t, w)["recipe"].(map[string]interface{})["id"].(string))
	}
	return ids
}

func TestPlanGenerateEndpoint(t *testing.T) {
	env := setupEnv(t, nil)
	_, token := env.registerUser(t, "planner@example.com")

	w := env.request(t, http.MethodGet, "/api/v1/plan", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	seedRecipes(t, env, token, "Curry", "Tacos")
	w = env.request(t, http.MethodGet, "/api/v1/plan", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["plan"].([]interface{}), 7)
}

func TestPlanSaveAndLatest(t *testing.T) {
	env := setupEnv(t, nil)
	_, token := env.registerUser(t, "saver@example.com")

	w := env.request(t, http.MethodGet, "/api/v1/plan/latest", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	entries := []map[string]string{
		{"date": "2026-08-31", "recipe_id": uuid.NewString(), "name": "Curry"},
	}
	w = env.request(t, http.MethodPost, "/api/v1/plan", token, map[string]interface{}{"entries": entries})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/plan/latest", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHistoryRecordAndList(t *testing.T) {
	env := setupEnv(t, nil)
	user, token := env.registerUser(t, "eater@example.com")
	recipeID := seedRecipes(t, env, token, "Stew")[0]

	w := env.request(t, http.MethodPost, "/api/v1/history", token, map[string]string{
		"date":      "2026-08-31",
		"recipe_id": recipeID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Marking the same meal twice stays a single entry.
	w = env.request(t, http.MethodPost, "/api/v1/history", token, map[string]string{
		"date":      "2026-08-31",
		"recipe_id": recipeID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	env.db.Model(&models.HistoryEntry{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	w = env.request(t, http.MethodGet, "/api/v1/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["history"].([]interface{}), 1)
}

func TestHistoryValidation(t *testing.T) {
	env := setupEnv(t, nil)
	_, token := env.registerUser(t, "picky@example.com")

	w := env.request(t, http.MethodPost, "/api/v1/history", token, map[string]string{
		"recipe_id": "not-a-uuid",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/history", token, map[string]string{
		"date":      "31/08/2026",
		"recipe_id": uuid.NewString(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodGet, "/api/v1/history?limit=zero", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsageEndpoint(t *testing.T) {
	env := setupEnv(t, nil)
	_, token := env.registerUser(t, "curious@example.com")

	w := env.request(t, http.MethodGet, "/api/v1/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["used"])
	assert.Equal(t, float64(models.DefaultDailyImportLimit), body["limit"])
	assert.Equal(t, float64(models.DefaultDailyImportLimit), body["remaining"])
	assert.Equal(t, false, body["unlimited"])
}
