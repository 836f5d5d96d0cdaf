package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"haven/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestAuthRequired_WSTicket(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	s := &Server{
		config: &config.Config{JWTSecret: "test-secret"},
		redis:  rdb,
	}

	app := fiber.New()
	app.Get("/api/ws/test", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	ctx := context.Background()

	t.Run("valid ticket authenticates and is consumed", func(t *testing.T) {
		ticket := "ws-test-ticket-1"
		key := fmt.Sprintf("ws_ticket:%s", ticket)
		assert.NoError(t, rdb.Set(ctx, key, "123", time.Minute).Err())

		req := httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket="+ticket, nil)
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		exists, err := rdb.Exists(ctx, key).Result()
		assert.NoError(t, err)
		assert.Equal(t, int64(0), exists, "ticket is single-use")
	})

	t.Run("replayed ticket is rejected on a ws path", func(t *testing.T) {
		ticket := "ws-test-ticket-2"
		key := fmt.Sprintf("ws_ticket:%s", ticket)
		assert.NoError(t, rdb.Set(ctx, key, "456", time.Minute).Err())

		req := httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket="+ticket, nil)
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		req2 := httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket="+ticket, nil)
		resp2, err := app.Test(req2)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
		_ = resp2.Body.Close()
	})

	t.Run("invalid ticket on a ws path returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ws/test?ticket=bogus", nil)
		resp, err := app.Test(req)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestIssueWSTicket(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := &Server{
		config: &config.Config{JWTSecret: "test-secret"},
		redis:  rdb,
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(42))
		return c.Next()
	})
	app.Post("/api/ws/ticket", s.IssueWSTicket)

	status, body := doJSON(t, app, http.MethodPost, "/api/ws/ticket", "", map[string]any{})
	mustStatus(t, status, http.StatusOK, "issue ticket")

	ticket, ok := body["ticket"].(string)
	assert.True(t, ok)
	assert.NotEmpty(t, ticket)

	stored, err := rdb.Get(context.Background(), "ws_ticket:"+ticket).Result()
	assert.NoError(t, err)
	assert.Equal(t, "42", stored)
}
