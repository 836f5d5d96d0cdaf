package server

import (
	"net/http"
	"testing"

	"haven/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	_, app := newTestServer(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": "mara",
		"email":    "mara@example.org",
		"password": "Str0ng!passphrase",
	})
	mustStatus(t, status, http.StatusCreated, "signup")
	require.NotEmpty(t, body["token"])

	t.Run("fresh accounts start at the lowest tier", func(t *testing.T) {
		token := body["token"].(string)
		status, me := doJSON(t, app, http.MethodGet, "/api/users/me", token, nil)
		mustStatus(t, status, http.StatusOK, "me")
		assert.Equal(t, string(models.RoleNew), me["role"])
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"username": "mara2",
			"email":    "mara@example.org",
			"password": "Str0ng!passphrase",
		})
		mustStatus(t, status, http.StatusConflict, "duplicate signup")
	})

	t.Run("login with the right password", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "mara@example.org",
			"password": "Str0ng!passphrase",
		})
		mustStatus(t, status, http.StatusOK, "login")
		assert.NotEmpty(t, body["token"])
	})

	t.Run("login with the wrong password", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email":    "mara@example.org",
			"password": "wrong",
		})
		mustStatus(t, status, http.StatusUnauthorized, "bad login")
	})
}

func TestLogout_RevokesToken(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	s, app := newTestServer(t)
	s.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	user := seedUser(t, s, "mara", "mara@example.org", models.RoleMember)
	token := tokenFor(t, s, user)

	status, _ := doJSON(t, app, http.MethodGet, "/api/users/me", token, nil)
	mustStatus(t, status, http.StatusOK, "me before logout")

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	mustStatus(t, status, http.StatusOK, "logout")

	status, _ = doJSON(t, app, http.MethodGet, "/api/users/me", token, nil)
	mustStatus(t, status, http.StatusUnauthorized, "me after logout")
}

func TestSignup_WeakPassword(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username": "mara",
		"email":    "mara@example.org",
		"password": "short",
	})
	mustStatus(t, status, http.StatusBadRequest, "weak password")
}
