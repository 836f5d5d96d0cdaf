package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"haven/internal/authz"
	"haven/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// wsTicketTTL bounds how long an issued ticket stays redeemable.
const wsTicketTTL = 30 * time.Second

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set an
// Authorization header on a websocket handshake, so an authenticated caller
// trades their JWT for a short-lived single-use ticket instead.
// @Summary Issue websocket ticket
// @Tags realtime
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("realtime events unavailable")))
	}

	userID := currentUserID(c)
	ticket := uuid.NewString()
	key := fmt.Sprintf("ws_ticket:%s", ticket)

	if err := s.redis.Set(c.Context(), key, fmt.Sprintf("%d", userID), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// WebsocketHandler handles the realtime event stream. Members receive their
// own events; admin connections additionally receive queue events.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			log.Printf("WebSocket: unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		userID := userIDVal.(uint)

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		role, err := s.roleRepo.Resolve(ctx, userID)
		if err != nil {
			log.Printf("WebSocket: failed to resolve role for user %d: %v", userID, err)
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn, authz.Permit(role, models.RoleAdmin))
		if err != nil {
			log.Printf("WebSocket: failed to register user %d: %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		welcome, _ := json.Marshal(fiber.Map{
			"type":    "connected",
			"payload": fiber.Map{"user_id": userID, "role": role},
		})
		client.TrySend(welcome)

		// Start write pump in a goroutine
		go client.WritePump()

		// Read pump runs in the main handler goroutine (blocking)
		client.ReadPump()
	})
}
