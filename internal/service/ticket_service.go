package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"haven/internal/authz"
	"haven/internal/middleware"
	"haven/internal/models"
	"haven/internal/notifications"
	"haven/internal/repository"
	"haven/internal/validation"
)

// TicketService owns the support ticket workflow: member-created threads
// worked by the admin queue, with internal notes hidden from the author.
type TicketService struct {
	tickets  repository.TicketRepository
	roles    repository.RoleRepository
	notifier *notifications.Notifier
}

// NewTicketService wires the workflow's dependencies.
func NewTicketService(tickets repository.TicketRepository, roles repository.RoleRepository, notifier *notifications.Notifier) *TicketService {
	return &TicketService{tickets: tickets, roles: roles, notifier: notifier}
}

// CreateTicketInput is the member-facing creation payload.
type CreateTicketInput struct {
	Category   models.TicketCategory   `json:"category"`
	Subject    string                  `json:"subject"`
	Body       string                  `json:"body"`
	Visibility models.TicketVisibility `json:"visibility"`
	UrgentNote string                  `json:"urgent_note"`
}

// TicketThread is a ticket with the projection of its messages the caller
// is allowed to see.
type TicketThread struct {
	Ticket   *models.SupportTicket  `json:"ticket"`
	Messages []models.TicketMessage `json:"messages"`
}

func validCategory(c models.TicketCategory) bool {
	switch c {
	case models.TicketCategoryResources, models.TicketCategoryLegal, models.TicketCategoryMedical, models.TicketCategoryOther:
		return true
	}
	return false
}

func validStatus(s models.TicketStatus) bool {
	switch s {
	case models.TicketStatusOpen, models.TicketStatusInProgress, models.TicketStatusResolved, models.TicketStatusClosed:
		return true
	}
	return false
}

// Create opens a new ticket for the caller. Members and above only.
func (s *TicketService) Create(ctx context.Context, callerID uint, in CreateTicketInput) (*models.SupportTicket, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(role, models.RoleMember); err != nil {
		return nil, err
	}

	if !validCategory(in.Category) {
		return nil, models.NewValidationError("unknown ticket category")
	}
	if err := validation.ValidateTicketSubject(in.Subject); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateMessageBody(in.Body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = models.TicketVisibilityAdmin
	}
	if visibility != models.TicketVisibilityAdmin && visibility != models.TicketVisibilityMember {
		return nil, models.NewValidationError("unknown ticket visibility")
	}

	ticket := &models.SupportTicket{
		CreatedByUserID: callerID,
		Category:        in.Category,
		Subject:         strings.TrimSpace(in.Subject),
		Body:            in.Body,
		Status:          models.TicketStatusOpen,
		Visibility:      visibility,
		UrgentNote:      in.UrgentNote,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "ticket.created", ticket, 0)

	return ticket, nil
}

// AddMessage appends to a ticket thread. The author may add regular
// messages to their own ticket; admins may add messages to any ticket and
// are the only ones who can mark a message internal.
func (s *TicketService) AddMessage(ctx context.Context, callerID, ticketID uint, body string, isInternal bool) (*models.TicketMessage, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	isAdmin := authz.Permit(role, models.RoleAdmin)
	isAuthor := ticket.CreatedByUserID == callerID

	if !isAdmin && !isAuthor {
		return nil, models.NewForbiddenError("Not your ticket")
	}
	if isInternal && !isAdmin {
		// Internal notes are staff-only even on the author's own thread.
		return nil, models.NewForbiddenError("Internal messages require admin access or above")
	}
	if isAuthor && !isAdmin {
		if err := authz.Require(role, models.RoleMember); err != nil {
			return nil, err
		}
	}

	if err := validation.ValidateMessageBody(body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	msg := &models.TicketMessage{
		TicketID:     ticketID,
		AuthorUserID: callerID,
		Body:         body,
		IsInternal:   isInternal,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.tickets.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	// The author never learns about internal traffic, not even as an
	// unread-activity ping.
	if !isInternal && callerID != ticket.CreatedByUserID {
		s.publishEvent(ctx, "ticket.message", ticket, ticket.CreatedByUserID)
	}
	if !isAdmin {
		s.publishEvent(ctx, "ticket.message", ticket, 0)
	}

	return msg, nil
}

// SetStatus moves the ticket to any workflow state. Admin and above only.
// A non-empty note is appended to the thread as an internal message.
func (s *TicketService) SetStatus(ctx context.Context, callerID, ticketID uint, status models.TicketStatus, note string) (*models.SupportTicket, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(role, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !validStatus(status) {
		return nil, models.NewValidationError("unknown ticket status")
	}

	if err := s.tickets.SetStatus(ctx, ticketID, status, time.Now().UTC()); err != nil {
		return nil, err
	}

	if note != "" {
		msg := &models.TicketMessage{
			TicketID:     ticketID,
			AuthorUserID: callerID,
			Body:         note,
			IsInternal:   true,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.tickets.AppendMessage(ctx, msg); err != nil {
			// The status change is already committed; a lost note is
			// reported but does not undo it.
			middleware.Logger.WarnContext(ctx, "failed to append status note",
				slog.Any("ticket_id", ticketID),
				slog.String("error", err.Error()),
			)
		}
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "ticket.status", ticket, ticket.CreatedByUserID)

	return ticket, nil
}

// ProjectThread returns the ticket and the message projection the caller
// may see: admins get the full thread, the author gets it with internal
// messages removed, everyone else gets nothing.
func (s *TicketService) ProjectThread(ctx context.Context, callerID, ticketID uint) (*TicketThread, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	isAdmin := authz.Permit(role, models.RoleAdmin)
	if !isAdmin && ticket.CreatedByUserID != callerID {
		return nil, models.NewForbiddenError("Not your ticket")
	}

	msgs, err := s.tickets.Messages(ctx, ticketID, isAdmin)
	if err != nil {
		return nil, err
	}

	return &TicketThread{Ticket: ticket, Messages: msgs}, nil
}

// ListMine returns the caller's own tickets.
func (s *TicketService) ListMine(ctx context.Context, callerID uint, limit, offset int) ([]models.SupportTicket, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(role, models.RoleMember); err != nil {
		return nil, err
	}
	return s.tickets.ListByAuthor(ctx, callerID, limit, offset)
}

// ListQueue returns the admin work queue, optionally filtered.
func (s *TicketService) ListQueue(ctx context.Context, callerID uint, status models.TicketStatus, category models.TicketCategory, limit, offset int) ([]models.SupportTicket, error) {
	role, err := s.roles.Resolve(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(role, models.RoleAdmin); err != nil {
		return nil, err
	}
	if status != "" && !validStatus(status) {
		return nil, models.NewValidationError("unknown status filter")
	}
	if category != "" && !validCategory(category) {
		return nil, models.NewValidationError("unknown category filter")
	}
	return s.tickets.ListAll(ctx, status, category, limit, offset)
}

// publishEvent notifies the admin channel, and additionally the given user
// when userID is nonzero.
func (s *TicketService) publishEvent(ctx context.Context, eventType string, ticket *models.SupportTicket, userID uint) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"payload": map[string]interface{}{
			"ticket_id": ticket.ID,
			"status":    ticket.Status,
		},
	})
	if err != nil {
		return
	}
	if userID != 0 {
		if err := s.notifier.PublishUser(ctx, userID, string(payload)); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish ticket event",
				slog.String("event", eventType),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if err := s.notifier.PublishAdmins(ctx, string(payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish ticket event",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}
