package server

import (
	"haven/internal/models"
	"haven/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitAccessRequest handles POST /api/access-requests. It is the only
// unauthenticated write in the API.
// @Summary Submit access request
// @Description Ask to join the community. The request lands in the admin review queue.
// @Tags access-requests
// @Accept json
// @Produce json
// @Param request body service.SubmitAccessRequestInput true "Access request"
// @Success 201 {object} models.AccessRequest
// @Failure 400 {object} models.ErrorResponse
// @Router /access-requests [post]
func (s *Server) SubmitAccessRequest(c *fiber.Ctx) error {
	var in service.SubmitAccessRequestInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req, err := s.accessRequestService.Submit(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

// ListAccessRequests handles GET /api/admin/access-requests with an optional
// status filter.
// @Summary List access requests
// @Description List access requests for review, optionally filtered by status.
// @Tags access-requests
// @Produce json
// @Param status query string false "Filter by status (pending, approved, denied)"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/access-requests [get]
func (s *Server) ListAccessRequests(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	status := models.AccessRequestStatus(c.Query("status"))

	requests, err := s.accessRequestService.List(c.Context(), currentUserID(c), status, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"access_requests": requests,
		"count":           len(requests),
	})
}

// GetAccessRequest handles GET /api/admin/access-requests/:id
// @Summary Get access request
// @Tags access-requests
// @Produce json
// @Param id path int true "Access request ID"
// @Success 200 {object} models.AccessRequest
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/access-requests/{id} [get]
func (s *Server) GetAccessRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	req, err := s.accessRequestService.GetByID(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(req)
}

// ApproveAccessRequest handles POST /api/admin/access-requests/:id/approve
// @Summary Approve access request
// @Description Approve a pending request. Repeat calls return the stored outcome without side effects.
// @Tags access-requests
// @Accept json
// @Produce json
// @Param id path int true "Access request ID"
// @Param request body object{note=string} false "Optional review note"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/access-requests/{id}/approve [post]
func (s *Server) ApproveAccessRequest(c *fiber.Ctx) error {
	return s.decideAccessRequest(c, models.DecisionApprove)
}

// DenyAccessRequest handles POST /api/admin/access-requests/:id/deny
// @Summary Deny access request
// @Description Deny a pending request. Repeat calls return the stored outcome without side effects.
// @Tags access-requests
// @Accept json
// @Produce json
// @Param id path int true "Access request ID"
// @Param request body object{note=string} false "Optional review note"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/access-requests/{id}/deny [post]
func (s *Server) DenyAccessRequest(c *fiber.Ctx) error {
	return s.decideAccessRequest(c, models.DecisionDeny)
}

func (s *Server) decideAccessRequest(c *fiber.Ctx, decision models.AccessRequestDecision) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Note string `json:"note"`
	}
	// The note is optional; an empty body is fine.
	_ = c.BodyParser(&body)

	req, applied, err := s.accessRequestService.Decide(c.Context(), currentUserID(c), id, decision, body.Note)
	if err != nil {
		return respondServiceError(c, err)
	}

	// A repeat decision is not an error: the stored outcome is returned
	// unchanged so retries and double-clicks stay harmless.
	return c.JSON(fiber.Map{
		"access_request": req,
		"applied":        applied,
	})
}
