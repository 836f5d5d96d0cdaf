package server

import (
	"haven/internal/models"
	"haven/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	role, err := s.roleRepo.Resolve(c.Context(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user,
		"role": role,
	})
}

// UpdateMyProfile handles PUT /api/users/me/profile
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body service.UpdateProfileInput true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/profile [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var in service.UpdateProfileInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.userService.UpdateProfile(c.Context(), currentUserID(c), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(profile)
}

// GetProfile handles GET /api/users/:id/profile
// @Summary Get member profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.Profile
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetProfile(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(profile)
}

// GetDirectory handles GET /api/users/directory
// @Summary Member directory
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /users/directory [get]
func (s *Server) GetDirectory(c *fiber.Ctx) error {
	p := parsePagination(c, 50)

	profiles, err := s.userService.ListDirectory(c.Context(), currentUserID(c), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// GetUserRole handles GET /api/users/:id/role
// @Summary Get user role
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id}/role [get]
func (s *Server) GetUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	role, err := s.userService.GetRole(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"user_id": id,
		"role":    role,
	})
}

// SetUserRole handles PUT /api/users/:id/role. Tier rules are enforced in
// the service: superadmin and above only, never at or above the caller.
// @Summary Set user role
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id}/role [put]
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Role models.Role `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.userService.SetRole(c.Context(), currentUserID(c), id, body.Role); err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"user_id": id,
		"role":    body.Role,
	})
}
