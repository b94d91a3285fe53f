package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appetora/backend/internal/middleware"
)

func TestRegisterEndpoint(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "new@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "new@example.com", body["user"].(map[string]interface{})["email"])

	// Session cookie is set alongside the token.
	cookies := w.Result().Cookies()
	var found bool
	for _, ck := range cookies {
		if ck.Name == middleware.SessionCookie && ck.Value != "" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRegisterValidation(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "missing-password@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := setupEnv(t, nil)
	env.registerUser(t, "taken@example.com")

	w := env.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "taken@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginEndpoint(t *testing.T) {
	env := setupEnv(t, nil)
	env.registerUser(t, "login@example.com")

	w := env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "login@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["token"])

	w = env.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "login@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeRequiresSession(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.request(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	user, token := env.registerUser(t, "me@example.com")
	w = env.request(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID.String(), decodeBody(t, w)["user"].(map[string]interface{})["id"])
}

func TestMeAcceptsSessionCookie(t *testing.T) {
	env := setupEnv(t, nil)
	_, token := env.registerUser(t, "cookie@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.request(t, http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	setCookie := w.Header().Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(setCookie, middleware.SessionCookie+"="))
	assert.Contains(t, setCookie, "Max-Age=0")
}
