package repository

import (
	"context"
	"time"

	"haven/internal/models"
	"haven/internal/observability"

	"gorm.io/gorm"
)

// OutboxRepository persists queued notifications. Rows are claimed with a
// conditional status flip so concurrent dispatchers never deliver the same
// row twice.
type OutboxRepository interface {
	Enqueue(ctx context.Context, n *models.Notification) error
	// ClaimDue claims up to limit pending rows whose next_attempt_at has
	// passed and returns only the rows this caller won.
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]models.Notification, error)
	MarkSent(ctx context.Context, id uint, at time.Time) error
	// MarkFailed records a delivery failure. When final is true the row is
	// abandoned, otherwise it is requeued for nextAttempt.
	MarkFailed(ctx context.Context, id uint, attempts int, lastError string, nextAttempt time.Time, final bool) error
	PendingCount(ctx context.Context) (int64, error)
}

type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository returns a new OutboxRepository implementation.
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, n *models.Notification) error {
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}
	if n.NextAttemptAt.IsZero() {
		n.NextAttemptAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *outboxRepository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]models.Notification, error) {
	defer observability.TrackQuery("claim", "notifications")()

	var due []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.NotificationStatusPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	claimed := make([]models.Notification, 0, len(due))
	for _, n := range due {
		res := r.db.WithContext(ctx).Model(&models.Notification{}).
			Where("id = ? AND status = ?", n.ID, models.NotificationStatusPending).
			Update("status", models.NotificationStatusSending)
		if res.Error != nil {
			return nil, models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 1 {
			n.Status = models.NotificationStatusSending
			claimed = append(claimed, n)
		}
	}
	return claimed, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusSent,
			"sent_at": at,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uint, attempts int, lastError string, nextAttempt time.Time, final bool) error {
	status := models.NotificationStatusPending
	if final {
		status = models.NotificationStatusFailed
	}
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"last_error":      lastError,
			"next_attempt_at": nextAttempt,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *outboxRepository) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("status = ?", models.NotificationStatusPending).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
