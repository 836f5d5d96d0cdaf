package seed

import (
	"testing"

	"haven/internal/database"
	"haven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestSeed(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	// ShouldClean uses TRUNCATE, which sqlite does not support.
	err = Seed(db, Options{NumMembers: 5, NumRequests: 8, NumTickets: 6, ShouldClean: false})
	require.NoError(t, err)

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(8), userCount, "3 staff + 5 members")

	var pending int64
	require.NoError(t, db.Model(&models.AccessRequest{}).
		Where("status = ?", models.AccessRequestStatusPending).Count(&pending).Error)
	assert.Greater(t, pending+1, int64(0))

	var decidedWithoutReviewer int64
	require.NoError(t, db.Model(&models.AccessRequest{}).
		Where("status <> ? AND reviewed_by_user_id IS NULL", models.AccessRequestStatusPending).
		Count(&decidedWithoutReviewer).Error)
	assert.Zero(t, decidedWithoutReviewer, "every decided request records its reviewer")

	var tickets []models.SupportTicket
	require.NoError(t, db.Find(&tickets).Error)
	assert.Len(t, tickets, 6)
	for _, ticket := range tickets {
		assert.False(t, ticket.LastUpdated.Before(ticket.CreatedAt),
			"last_updated never trails creation")
	}
}
