package repository

import (
	"context"
	"testing"
	"time"

	"haven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_ClaimDue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	due := &models.Notification{Recipient: "a@example.org", Subject: "hi", Body: "b", NextAttemptAt: now.Add(-time.Minute)}
	future := &models.Notification{Recipient: "b@example.org", Subject: "later", Body: "b", NextAttemptAt: now.Add(time.Hour)}
	require.NoError(t, repo.Enqueue(ctx, due))
	require.NoError(t, repo.Enqueue(ctx, future))

	claimed, err := repo.ClaimDue(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)
	assert.Equal(t, models.NotificationStatusSending, claimed[0].Status)

	// A second dispatcher pass sees nothing; the row is already claimed.
	claimed, err = repo.ClaimDue(ctx, 10, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestOutboxRepository_MarkSent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	n := &models.Notification{Recipient: "a@example.org", Subject: "hi", Body: "b"}
	require.NoError(t, repo.Enqueue(ctx, n))
	require.NoError(t, repo.MarkSent(ctx, n.ID, now))

	var got models.Notification
	require.NoError(t, db.First(&got, n.ID).Error)
	assert.Equal(t, models.NotificationStatusSent, got.Status)
	assert.NotNil(t, got.SentAt)
}

func TestOutboxRepository_MarkFailed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	n := &models.Notification{Recipient: "a@example.org", Subject: "hi", Body: "b", NextAttemptAt: now.Add(-time.Minute)}
	require.NoError(t, repo.Enqueue(ctx, n))

	t.Run("retryable failure requeues the row", func(t *testing.T) {
		require.NoError(t, repo.MarkFailed(ctx, n.ID, 1, "connection refused", now.Add(time.Minute), false))

		var got models.Notification
		require.NoError(t, db.First(&got, n.ID).Error)
		assert.Equal(t, models.NotificationStatusPending, got.Status)
		assert.Equal(t, 1, got.Attempts)
		assert.Equal(t, "connection refused", got.LastError)
	})

	t.Run("final failure abandons the row", func(t *testing.T) {
		require.NoError(t, repo.MarkFailed(ctx, n.ID, 5, "connection refused", now.Add(time.Minute), true))

		var got models.Notification
		require.NoError(t, db.First(&got, n.ID).Error)
		assert.Equal(t, models.NotificationStatusFailed, got.Status)

		count, err := repo.PendingCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}
