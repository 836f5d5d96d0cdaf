package server

import (
	"haven/internal/models"
	"haven/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateTicket handles POST /api/tickets
// @Summary Create support ticket
// @Tags tickets
// @Accept json
// @Produce json
// @Param request body service.CreateTicketInput true "Ticket"
// @Success 201 {object} models.SupportTicket
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /tickets [post]
func (s *Server) CreateTicket(c *fiber.Ctx) error {
	var in service.CreateTicketInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ticket, err := s.ticketService.Create(c.Context(), currentUserID(c), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ticket)
}

// ListMyTickets handles GET /api/tickets/mine
// @Summary List own tickets
// @Tags tickets
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /tickets/mine [get]
func (s *Server) ListMyTickets(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	tickets, err := s.ticketService.ListMine(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// GetTicketThread handles GET /api/tickets/:id. The response carries the
// message projection the caller is allowed to see.
// @Summary Get ticket thread
// @Description Ticket with its messages. Internal notes are omitted for the ticket's author.
// @Tags tickets
// @Produce json
// @Param id path int true "Ticket ID"
// @Success 200 {object} service.TicketThread
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /tickets/{id} [get]
func (s *Server) GetTicketThread(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.ticketService.ProjectThread(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(thread)
}

// AddTicketMessage handles POST /api/tickets/:id/messages
// @Summary Add ticket message
// @Description Append a reply. Only staff may mark a message internal.
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path int true "Ticket ID"
// @Param request body object{body=string,is_internal=bool} true "Message"
// @Success 201 {object} models.TicketMessage
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /tickets/{id}/messages [post]
func (s *Server) AddTicketMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Body       string `json:"body"`
		IsInternal bool   `json:"is_internal"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	msg, err := s.ticketService.AddMessage(c.Context(), currentUserID(c), id, body.Body, body.IsInternal)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ListTicketQueue handles GET /api/admin/tickets with optional status and
// category filters.
// @Summary List ticket queue
// @Tags tickets
// @Produce json
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/tickets [get]
func (s *Server) ListTicketQueue(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	status := models.TicketStatus(c.Query("status"))
	category := models.TicketCategory(c.Query("category"))

	tickets, err := s.ticketService.ListQueue(c.Context(), currentUserID(c), status, category, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// SetTicketStatus handles POST /api/admin/tickets/:id/status
// @Summary Set ticket status
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path int true "Ticket ID"
// @Param request body object{status=string,note=string} true "New status and optional internal note"
// @Success 200 {object} models.SupportTicket
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/tickets/{id}/status [post]
func (s *Server) SetTicketStatus(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Status models.TicketStatus `json:"status"`
		Note   string              `json:"note"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ticket, err := s.ticketService.SetStatus(c.Context(), currentUserID(c), id, body.Status, body.Note)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(ticket)
}
