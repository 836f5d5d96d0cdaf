package repository

import (
	"context"
	"errors"
	"time"

	"haven/internal/cache"
	"haven/internal/models"
	"haven/internal/observability"

	"gorm.io/gorm"
)

// TicketRepository persists support tickets and their message threads.
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	GetByID(ctx context.Context, id uint) (*models.SupportTicket, error)
	ListByAuthor(ctx context.Context, userID uint, limit, offset int) ([]models.SupportTicket, error)
	ListAll(ctx context.Context, status models.TicketStatus, category models.TicketCategory, limit, offset int) ([]models.SupportTicket, error)
	// AppendMessage inserts the message and advances the ticket's
	// last_updated, which only ever moves forward.
	AppendMessage(ctx context.Context, msg *models.TicketMessage) error
	// SetStatus updates the workflow state and advances last_updated.
	SetStatus(ctx context.Context, id uint, status models.TicketStatus, at time.Time) error
	// Messages returns the thread in chronological order. Internal messages
	// are omitted unless includeInternal is set.
	Messages(ctx context.Context, ticketID uint, includeInternal bool) ([]models.TicketMessage, error)
}

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository returns a new TicketRepository implementation.
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *models.SupportTicket) error {
	defer observability.TrackQuery("insert", "support_tickets")()

	// Stamp both columns from one clock read; a fresh ticket starts with
	// last_updated equal to created_at, not trailing it.
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now().UTC()
	}
	if ticket.LastUpdated.IsZero() {
		ticket.LastUpdated = ticket.CreatedAt
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusOpen
	}
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id uint) (*models.SupportTicket, error) {
	defer observability.TrackQuery("select", "support_tickets")()

	var ticket models.SupportTicket
	err := cache.Aside(ctx, cache.TicketKey(id), &ticket, cache.TicketTTL, func() error {
		return r.db.WithContext(ctx).First(&ticket, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Ticket", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByAuthor(ctx context.Context, userID uint, limit, offset int) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	err := r.db.WithContext(ctx).
		Where("created_by_user_id = ?", userID).
		Order("last_updated DESC").
		Limit(limit).Offset(offset).
		Find(&tickets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tickets, nil
}

func (r *ticketRepository) ListAll(ctx context.Context, status models.TicketStatus, category models.TicketCategory, limit, offset int) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	q := r.db.WithContext(ctx).Order("last_updated DESC").Limit(limit).Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Find(&tickets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tickets, nil
}

func (r *ticketRepository) AppendMessage(ctx context.Context, msg *models.TicketMessage) error {
	defer observability.TrackQuery("insert", "ticket_messages")()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return bumpLastUpdated(tx, msg.TicketID, msg.CreatedAt)
	})
	if err != nil {
		return models.NewInternalError(err)
	}

	cache.InvalidateTicket(ctx, msg.TicketID)
	return nil
}

func (r *ticketRepository) SetStatus(ctx context.Context, id uint, status models.TicketStatus, at time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SupportTicket{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return bumpLastUpdated(tx, id, at)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError("Ticket", id)
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	cache.InvalidateTicket(ctx, id)
	return nil
}

// bumpLastUpdated advances last_updated to at, but never backwards. The
// guard in the WHERE clause keeps the column monotonic even when writes
// land with skewed clocks.
func bumpLastUpdated(tx *gorm.DB, ticketID uint, at time.Time) error {
	return tx.Model(&models.SupportTicket{}).
		Where("id = ? AND last_updated < ?", ticketID, at).
		Update("last_updated", at).Error
}

func (r *ticketRepository) Messages(ctx context.Context, ticketID uint, includeInternal bool) ([]models.TicketMessage, error) {
	defer observability.TrackQuery("select", "ticket_messages")()

	var msgs []models.TicketMessage
	q := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC, id ASC")
	if !includeInternal {
		q = q.Where("is_internal = ?", false)
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}
