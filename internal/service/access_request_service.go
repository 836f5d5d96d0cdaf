// Package service implements the application's business logic.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"haven/internal/authz"
	"haven/internal/middleware"
	"haven/internal/models"
	"haven/internal/notifications"
	"haven/internal/repository"
	"haven/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AccessRequestService owns the onboarding workflow: submission by
// unauthenticated applicants and the single decision that moves a request
// out of pending.
type AccessRequestService struct {
	requests repository.AccessRequestRepository
	roles    repository.RoleRepository
	users    repository.UserRepository
	profiles repository.ProfileRepository
	outbox   repository.OutboxRepository
	notifier *notifications.Notifier
}

// NewAccessRequestService wires the workflow's dependencies.
func NewAccessRequestService(
	requests repository.AccessRequestRepository,
	roles repository.RoleRepository,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	outbox repository.OutboxRepository,
	notifier *notifications.Notifier,
) *AccessRequestService {
	return &AccessRequestService{
		requests: requests,
		roles:    roles,
		users:    users,
		profiles: profiles,
		outbox:   outbox,
		notifier: notifier,
	}
}

// SubmitAccessRequestInput is the applicant-facing submission payload.
type SubmitAccessRequestInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

// Submit records a new pending application. No authentication is required;
// this is the only write an outsider can perform.
func (s *AccessRequestService) Submit(ctx context.Context, in SubmitAccessRequestInput) (*models.AccessRequest, error) {
	if err := validation.ValidateFullName(in.FullName); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, models.NewValidationError("message is required")
	}

	req := &models.AccessRequest{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Message:  in.Message,
		Status:   models.AccessRequestStatusPending,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.publishAdminEvent(ctx, "access_request.created", req)

	return req, nil
}

// GetByID returns a single request. Reviewer-only.
func (s *AccessRequestService) GetByID(ctx context.Context, callerID, requestID uint) (*models.AccessRequest, error) {
	if err := s.requireReviewer(ctx, callerID); err != nil {
		return nil, err
	}
	return s.requests.GetByID(ctx, requestID)
}

// List returns requests filtered by status. Reviewer-only.
func (s *AccessRequestService) List(ctx context.Context, callerID uint, status models.AccessRequestStatus, limit, offset int) ([]models.AccessRequest, error) {
	if err := s.requireReviewer(ctx, callerID); err != nil {
		return nil, err
	}
	if status != "" {
		switch status {
		case models.AccessRequestStatusPending, models.AccessRequestStatusApproved, models.AccessRequestStatusDenied:
		default:
			return nil, models.NewValidationError("unknown status filter")
		}
	}
	return s.requests.List(ctx, status, limit, offset)
}

// Decide applies an approve or deny verdict. The state transition happens
// exactly once; a repeat call on an already-decided request returns the
// stored request with applied=false and triggers no side effects. The
// request's committed state never depends on provisioning or notification
// succeeding.
func (s *AccessRequestService) Decide(ctx context.Context, reviewerID, requestID uint, decision models.AccessRequestDecision, note string) (*models.AccessRequest, bool, error) {
	if err := s.requireReviewer(ctx, reviewerID); err != nil {
		return nil, false, err
	}

	if decision != models.DecisionApprove && decision != models.DecisionDeny {
		return nil, false, models.NewValidationError("decision must be approve or deny")
	}

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, false, err
	}

	applied, err := s.requests.Decide(ctx, requestID, decision.Status(), reviewerID, note, time.Now().UTC())
	if err != nil {
		return nil, false, err
	}

	if !applied {
		// Lost the race or the request was already decided. The stored
		// outcome stands untouched.
		return req, false, nil
	}

	req, err = s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, false, err
	}

	middleware.AccessRequestDecisions.WithLabelValues(string(decision)).Inc()

	// Side effects run only on the winning transition and only after the
	// decision is committed. None of them can undo it.
	if decision == models.DecisionApprove {
		s.provisionApplicant(ctx, req)
	}
	s.enqueueDecisionMail(ctx, req)
	s.publishAdminEvent(ctx, "access_request.decided", req)

	return req, true, nil
}

// provisionApplicant resolves or creates the applicant's account, raises it
// to member, and makes sure it has a directory profile.
func (s *AccessRequestService) provisionApplicant(ctx context.Context, req *models.AccessRequest) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "provisioning lookup failed",
			slog.Any("request_id", req.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if user == nil {
		user, err = s.createPlaceholderAccount(ctx, req)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "provisioning account creation failed",
				slog.Any("request_id", req.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	current, err := s.roles.Resolve(ctx, user.ID)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "provisioning role lookup failed",
			slog.Any("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	// Provisioning only ever raises the tier. An admin approving their own
	// old application must not be demoted to member.
	if authz.Outranks(models.RoleMember, current) {
		if err := s.roles.Assign(ctx, user.ID, models.RoleMember); err != nil {
			middleware.Logger.ErrorContext(ctx, "provisioning role assignment failed",
				slog.Any("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	if err := s.profiles.EnsureExists(ctx, user.ID, req.FullName); err != nil {
		middleware.Logger.ErrorContext(ctx, "provisioning profile creation failed",
			slog.Any("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// createPlaceholderAccount creates an account for an approved applicant who
// never signed up. The password is an unguessable placeholder; the applicant
// completes setup through the password reset flow.
func (s *AccessRequestService) createPlaceholderAccount(ctx context.Context, req *models.AccessRequest) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	local, _, _ := strings.Cut(req.Email, "@")
	user := &models.User{
		Username: fmt.Sprintf("%s-%s", local, uuid.NewString()[:8]),
		Email:    req.Email,
		Password: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AccessRequestService) enqueueDecisionMail(ctx context.Context, req *models.AccessRequest) {
	var subject, body string
	if req.Status == models.AccessRequestStatusApproved {
		subject = "Your Haven access request was approved"
		body = fmt.Sprintf("Hi %s,\n\nYour request to join Haven has been approved. You can now sign in as a member.\n", req.FullName)
	} else {
		subject = "Your Haven access request"
		body = fmt.Sprintf("Hi %s,\n\nWe are unable to approve your request to join Haven at this time.\n", req.FullName)
	}

	n := &models.Notification{Recipient: req.Email, Subject: subject, Body: body}
	if err := s.outbox.Enqueue(ctx, n); err != nil {
		// The decision is already committed; a full outbox table or a dead
		// database connection here must not look like a failed decision.
		middleware.Logger.ErrorContext(ctx, "failed to enqueue decision mail",
			slog.Any("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AccessRequestService) publishAdminEvent(ctx context.Context, eventType string, req *models.AccessRequest) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"payload": map[string]interface{}{
			"request_id": req.ID,
			"status":     req.Status,
		},
	})
	if err != nil {
		return
	}
	if err := s.notifier.PublishAdmins(ctx, string(payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish admin event",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func (s *AccessRequestService) requireReviewer(ctx context.Context, callerID uint) error {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return err
	}
	return authz.Require(role, models.RoleAdmin)
}
