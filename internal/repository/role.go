package repository

import (
	"context"
	"errors"

	"haven/internal/cache"
	"haven/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository resolves and assigns trust tiers.
type RoleRepository interface {
	// Resolve returns the principal's current role. A missing row resolves
	// to RoleNew, never to anything higher.
	Resolve(ctx context.Context, userID uint) (models.Role, error)
	// Assign sets the principal's role, creating the row if needed.
	Assign(ctx context.Context, userID uint, role models.Role) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository returns a new RoleRepository implementation.
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Resolve(ctx context.Context, userID uint) (models.Role, error) {
	var role models.Role
	key := cache.RoleKey(userID)

	err := cache.Aside(ctx, key, &role, cache.RoleTTL, func() error {
		var row models.UserRole
		err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role = models.RoleNew
			return nil
		}
		if err != nil {
			return models.NewInternalError(err)
		}
		role = row.Role
		return nil
	})

	if err != nil {
		return models.RoleNew, err
	}
	return role, nil
}

func (r *roleRepository) Assign(ctx context.Context, userID uint, role models.Role) error {
	row := models.UserRole{UserID: userID, Role: role}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	cache.InvalidateRole(ctx, userID)
	return nil
}
