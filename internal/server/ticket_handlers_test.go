package server

import (
	"fmt"
	"net/http"
	"testing"

	"haven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketFlow(t *testing.T) {
	s, app := newTestServer(t)

	author := seedUser(t, s, "mara", "mara@example.org", models.RoleMember)
	admin := seedUser(t, s, "ada", "ada@example.org", models.RoleAdmin)
	other := seedUser(t, s, "finn", "finn@example.org", models.RoleMember)

	authorToken := tokenFor(t, s, author)
	adminToken := tokenFor(t, s, admin)
	otherToken := tokenFor(t, s, other)

	status, body := doJSON(t, app, http.MethodPost, "/api/tickets/", authorToken, map[string]any{
		"category": "legal",
		"subject":  "Tenant rights question",
		"body":     "My landlord is threatening eviction.",
	})
	mustStatus(t, status, http.StatusCreated, "create ticket")
	assert.Equal(t, "open", body["status"])
	ticketID := int(body["id"].(float64))
	threadPath := fmt.Sprintf("/api/tickets/%d", ticketID)

	t.Run("author posts a public message", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, threadPath+"/messages", authorToken, map[string]any{
			"body": "Any update on this?",
		})
		mustStatus(t, status, http.StatusCreated, "author message")
	})

	t.Run("author cannot post an internal message", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, threadPath+"/messages", authorToken, map[string]any{
			"body":        "note",
			"is_internal": true,
		})
		mustStatus(t, status, http.StatusForbidden, "author internal message")
	})

	t.Run("admin posts an internal note", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, threadPath+"/messages", adminToken, map[string]any{
			"body":        "Flagging for legal aid referral.",
			"is_internal": true,
		})
		mustStatus(t, status, http.StatusCreated, "admin internal message")
		assert.Equal(t, true, body["is_internal"])
	})

	t.Run("author projection hides the internal note", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, threadPath, authorToken, nil)
		mustStatus(t, status, http.StatusOK, "author thread")

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 1, "internal note must not appear in the author's thread")
	})

	t.Run("admin projection includes the internal note", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, threadPath, adminToken, nil)
		mustStatus(t, status, http.StatusOK, "admin thread")

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
	})

	t.Run("unrelated member cannot read the thread", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodGet, threadPath, otherToken, nil)
		mustStatus(t, status, http.StatusForbidden, "unrelated member thread")
	})

	t.Run("admin moves the ticket through the workflow", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost,
			fmt.Sprintf("/api/admin/tickets/%d/status", ticketID), adminToken, map[string]any{
				"status": "in_progress",
			})
		mustStatus(t, status, http.StatusOK, "set status")
		assert.Equal(t, "in_progress", body["status"])
	})

	t.Run("author cannot set status", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost,
			fmt.Sprintf("/api/admin/tickets/%d/status", ticketID), authorToken, map[string]any{
				"status": "closed",
			})
		mustStatus(t, status, http.StatusForbidden, "author set status")
	})

	t.Run("member cannot browse the admin queue", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodGet, "/api/admin/tickets/", authorToken, nil)
		mustStatus(t, status, http.StatusForbidden, "member queue")
	})

	t.Run("admin queue lists the ticket", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, "/api/admin/tickets/?status=in_progress", adminToken, nil)
		mustStatus(t, status, http.StatusOK, "admin queue")
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("author sees their own tickets", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, "/api/tickets/mine", authorToken, nil)
		mustStatus(t, status, http.StatusOK, "list mine")
		assert.Equal(t, float64(1), body["count"])
	})
}

func TestCreateTicket_RequiresMembership(t *testing.T) {
	s, app := newTestServer(t)

	applicant := seedUser(t, s, "newbie", "newbie@example.org", models.RoleNew)
	status, _ := doJSON(t, app, http.MethodPost, "/api/tickets/", tokenFor(t, s, applicant), map[string]any{
		"category": "other",
		"subject":  "hello",
		"body":     "let me in",
	})
	mustStatus(t, status, http.StatusForbidden, "new principal create")
}
