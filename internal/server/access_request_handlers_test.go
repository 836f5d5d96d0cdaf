package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"haven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessRequestFlow(t *testing.T) {
	s, app := newTestServer(t)

	admin := seedUser(t, s, "ada", "ada@example.org", models.RoleAdmin)
	adminToken := tokenFor(t, s, admin)

	// An outsider submits without any token.
	status, body := doJSON(t, app, http.MethodPost, "/api/access-requests", "", map[string]any{
		"full_name": "Robin Okafor",
		"email":     "Robin@Example.org",
		"message":   "A friend told me about this community.",
	})
	mustStatus(t, status, http.StatusCreated, "submit")
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "robin@example.org", body["email"], "email is normalized on submission")
	requestID := int(body["id"].(float64))

	t.Run("admin sees the pending queue", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, "/api/admin/access-requests/?status=pending", adminToken, nil)
		mustStatus(t, status, http.StatusOK, "list pending")
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("member cannot reach the admin queue", func(t *testing.T) {
		member := seedUser(t, s, "mara", "mara@example.org", models.RoleMember)
		status, _ := doJSON(t, app, http.MethodGet, "/api/admin/access-requests/", tokenFor(t, s, member), nil)
		mustStatus(t, status, http.StatusForbidden, "member list")
	})

	t.Run("approval transitions once and provisions the applicant", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost,
			fmt.Sprintf("/api/admin/access-requests/%d/approve", requestID), adminToken, map[string]any{"note": "vouched"})
		mustStatus(t, status, http.StatusOK, "approve")
		assert.Equal(t, true, body["applied"])

		stored := body["access_request"].(map[string]any)
		assert.Equal(t, "approved", stored["status"])

		user, err := s.userRepo.GetByEmail(context.Background(), "robin@example.org")
		require.NoError(t, err)
		require.NotNil(t, user, "approval creates an account for the applicant")

		role, err := s.roleRepo.Resolve(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleMember, role)

		pending, err := s.outboxRepo.PendingCount(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), pending, "decision mail is queued, not sent inline")
	})

	t.Run("a second decision is a no-op that preserves the stored outcome", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost,
			fmt.Sprintf("/api/admin/access-requests/%d/deny", requestID), adminToken, nil)
		mustStatus(t, status, http.StatusOK, "duplicate deny")
		assert.Equal(t, false, body["applied"])

		stored := body["access_request"].(map[string]any)
		assert.Equal(t, "approved", stored["status"], "the first verdict stands")

		pending, err := s.outboxRepo.PendingCount(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), pending, "no second mail is queued")
	})
}

func TestSubmitAccessRequest_Validation(t *testing.T) {
	_, app := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad email", map[string]any{"full_name": "Robin", "email": "nope", "message": "hi"}},
		{"empty message", map[string]any{"full_name": "Robin", "email": "r@example.org", "message": "  "}},
		{"blank name", map[string]any{"full_name": " ", "email": "r@example.org", "message": "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doJSON(t, app, http.MethodPost, "/api/access-requests", "", tt.body)
			mustStatus(t, status, http.StatusBadRequest, tt.name)
		})
	}
}

func TestAccessRequest_UnauthenticatedAdminRoutes(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := doJSON(t, app, http.MethodGet, "/api/admin/access-requests/", "", nil)
	mustStatus(t, status, http.StatusUnauthorized, "no token")
}
