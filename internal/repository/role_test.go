package repository

import (
	"context"
	"testing"

	"haven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRepository_Resolve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	t.Run("missing row resolves to new", func(t *testing.T) {
		role, err := repo.Resolve(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, models.RoleNew, role)
	})

	t.Run("existing row resolves to stored role", func(t *testing.T) {
		require.NoError(t, repo.Assign(ctx, 43, models.RoleAdmin))

		role, err := repo.Resolve(ctx, 43)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, role)
	})
}

func TestRoleRepository_Assign(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Assign(ctx, 10, models.RoleMember))

	// Re-assigning overwrites rather than duplicating the row.
	require.NoError(t, repo.Assign(ctx, 10, models.RoleSuperadmin))

	var count int64
	require.NoError(t, db.Model(&models.UserRole{}).Where("user_id = ?", 10).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	role, err := repo.Resolve(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperadmin, role)
}
