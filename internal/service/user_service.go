package service

import (
	"context"
	"strings"

	"haven/internal/authz"
	"haven/internal/models"
	"haven/internal/repository"
	"haven/internal/validation"
)

// UserService handles account reads, directory profiles, and role
// assignment.
type UserService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	roles    repository.RoleRepository
}

// NewUserService wires the service's dependencies.
func NewUserService(users repository.UserRepository, profiles repository.ProfileRepository, roles repository.RoleRepository) *UserService {
	return &UserService{users: users, profiles: profiles, roles: roles}
}

// UpdateProfileInput is the self-service profile edit payload.
type UpdateProfileInput struct {
	DisplayName  string `json:"display_name"`
	Pronouns     string `json:"pronouns"`
	Location     string `json:"location"`
	Bio          string `json:"bio"`
	ContactEmail string `json:"contact_email"`
	ShowEmail    bool   `json:"show_email"`
	ShowLocation bool   `json:"show_location"`
}

// GetUser returns a user with profile preloaded.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByIDWithProfile(ctx, id)
}

// UpdateProfile writes the caller's own directory entry. Members and above
// only; a first edit creates the profile.
func (s *UserService) UpdateProfile(ctx context.Context, callerID uint, in UpdateProfileInput) (*models.Profile, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(role, models.RoleMember); err != nil {
		return nil, err
	}

	if err := validation.ValidateFullName(in.DisplayName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.ContactEmail != "" {
		if err := validation.ValidateEmail(in.ContactEmail); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if len(in.Bio) > 2000 {
		return nil, models.NewValidationError("bio must not exceed 2000 characters")
	}

	profile := &models.Profile{
		UserID:       callerID,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Pronouns:     in.Pronouns,
		Location:     in.Location,
		Bio:          in.Bio,
		ContactEmail: in.ContactEmail,
		ShowEmail:    in.ShowEmail,
		ShowLocation: in.ShowLocation,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// GetProfile returns another member's directory entry with the owner's
// visibility flags applied. Members and above only.
func (s *UserService) GetProfile(ctx context.Context, callerID, targetID uint) (*models.Profile, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(role, models.RoleMember); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if callerID != targetID {
		applyVisibility(profile)
	}
	return profile, nil
}

// ListDirectory returns member profiles with visibility flags applied.
func (s *UserService) ListDirectory(ctx context.Context, callerID uint, limit, offset int) ([]models.Profile, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(role, models.RoleMember); err != nil {
		return nil, err
	}

	profiles, err := s.profiles.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].UserID != callerID {
			applyVisibility(&profiles[i])
		}
	}
	return profiles, nil
}

func applyVisibility(p *models.Profile) {
	if !p.ShowEmail {
		p.ContactEmail = ""
	}
	if !p.ShowLocation {
		p.Location = ""
	}
}

// SetRole assigns a trust tier. Superadmin and above only, and the caller
// must strictly outrank the tier being handed out, so a superadmin cannot
// mint peers or gods.
func (s *UserService) SetRole(ctx context.Context, callerID, targetID uint, role models.Role) error {
	callerRole, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return err
	}
	if err := authz.Require(callerRole, models.RoleSuperadmin); err != nil {
		return err
	}
	if !authz.Valid(role) {
		return models.NewValidationError("unknown role")
	}
	if !authz.Outranks(callerRole, role) {
		return models.NewForbiddenError("Cannot assign a role at or above your own")
	}

	// The caller must also outrank the target's current tier; demoting a
	// peer is off the table.
	targetRole, err := s.roles.Resolve(ctx, targetID)
	if err != nil {
		return err
	}
	if !authz.Outranks(callerRole, targetRole) {
		return models.NewForbiddenError("Cannot change the role of a peer or superior")
	}

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return err
	}

	return s.roles.Assign(ctx, targetID, role)
}

// GetRole resolves a principal's tier for display. Admin and above may look
// up anyone; others may only ask about themselves.
func (s *UserService) GetRole(ctx context.Context, callerID, targetID uint) (models.Role, error) {
	if callerID != targetID {
		callerRole, err := s.roles.Resolve(ctx, callerID)
		if err != nil {
			return models.RoleNew, err
		}
		if err := authz.Require(callerRole, models.RoleAdmin); err != nil {
			return models.RoleNew, err
		}
	}
	return s.roles.Resolve(ctx, targetID)
}
