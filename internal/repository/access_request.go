package repository

import (
	"context"
	"errors"
	"time"

	"haven/internal/models"
	"haven/internal/observability"

	"gorm.io/gorm"
)

// AccessRequestRepository persists onboarding applications.
type AccessRequestRepository interface {
	Create(ctx context.Context, req *models.AccessRequest) error
	GetByID(ctx context.Context, id uint) (*models.AccessRequest, error)
	List(ctx context.Context, status models.AccessRequestStatus, limit, offset int) ([]models.AccessRequest, error)
	// Decide moves the request out of pending with a single conditional
	// update. It returns true when this call performed the transition and
	// false when the request had already left pending.
	Decide(ctx context.Context, id uint, status models.AccessRequestStatus, reviewerID uint, note string, at time.Time) (bool, error)
}

type accessRequestRepository struct {
	db *gorm.DB
}

// NewAccessRequestRepository returns a new AccessRequestRepository implementation.
func NewAccessRequestRepository(db *gorm.DB) AccessRequestRepository {
	return &accessRequestRepository{db: db}
}

func (r *accessRequestRepository) Create(ctx context.Context, req *models.AccessRequest) error {
	if req.Status == "" {
		req.Status = models.AccessRequestStatusPending
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accessRequestRepository) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	var req models.AccessRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Access request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *accessRequestRepository) List(ctx context.Context, status models.AccessRequestStatus, limit, offset int) ([]models.AccessRequest, error) {
	var reqs []models.AccessRequest
	q := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Limit(limit).Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

func (r *accessRequestRepository) Decide(ctx context.Context, id uint, status models.AccessRequestStatus, reviewerID uint, note string, at time.Time) (bool, error) {
	defer observability.TrackQuery("update", "access_requests")()
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "Decide", "access_requests")
	defer span.End()

	// Conditional update is the single chokepoint for leaving pending.
	// Concurrent deciders race on the WHERE clause; exactly one row update
	// wins, the rest see zero rows affected.
	res := r.db.WithContext(ctx).Model(&models.AccessRequest{}).
		Where("id = ? AND status = ?", id, models.AccessRequestStatusPending).
		Updates(map[string]interface{}{
			"status":              status,
			"reviewed_by_user_id": reviewerID,
			"reviewed_at":         at,
			"review_note":         note,
		})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}
