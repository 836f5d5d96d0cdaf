package repository

import (
	"context"
	"errors"

	"haven/internal/cache"
	"haven/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository persists member directory entries.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	// Upsert writes the profile keyed by user_id.
	Upsert(ctx context.Context, profile *models.Profile) error
	// EnsureExists creates a minimal profile if the user has none yet.
	// An existing profile is left untouched.
	EnsureExists(ctx context.Context, userID uint, displayName string) error
	List(ctx context.Context, limit, offset int) ([]models.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	key := cache.ProfileKey(userID)

	err := cache.Aside(ctx, key, &profile, cache.ProfileTTL, func() error {
		if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Profile", userID)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "pronouns", "location", "bio",
			"contact_email", "show_email", "show_location", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	cache.Invalidate(ctx, cache.ProfileKey(profile.UserID))
	return nil
}

func (r *profileRepository) EnsureExists(ctx context.Context, userID uint, displayName string) error {
	profile := models.Profile{UserID: userID, DisplayName: displayName}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&profile).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) List(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).Order("display_name ASC").Limit(limit).Offset(offset).Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}
