package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"haven/internal/database"
	"haven/internal/models"
	"haven/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeMailer struct {
	mu       sync.Mutex
	sent     []string
	sendFunc func(recipient string) error
}

func (m *fakeMailer) Send(_ context.Context, recipient, _, _ string) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(recipient); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.sent = append(m.sent, recipient)
	m.mu.Unlock()
	return nil
}

func setupOutbox(t *testing.T) repository.OutboxRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return repository.NewOutboxRepository(db)
}

func TestDispatcher_ProcessOnce(t *testing.T) {
	repo := setupOutbox(t)
	mailer := &fakeMailer{}
	d := NewDispatcher(repo, mailer, time.Second, 3)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Enqueue(ctx, &models.Notification{
		Recipient: "member@example.org", Subject: "Welcome", Body: "hello", NextAttemptAt: past,
	}))

	require.NoError(t, d.ProcessOnce(ctx))

	assert.Equal(t, []string{"member@example.org"}, mailer.sent)

	// Already-sent rows are not claimed again.
	require.NoError(t, d.ProcessOnce(ctx))
	assert.Len(t, mailer.sent, 1)
}

func TestDispatcher_RetriesThenAbandons(t *testing.T) {
	repo := setupOutbox(t)
	mailer := &fakeMailer{
		sendFunc: func(string) error { return errors.New("relay unavailable") },
	}
	d := NewDispatcher(repo, mailer, time.Second, 2)
	ctx := context.Background()

	n := &models.Notification{
		Recipient: "member@example.org", Subject: "Welcome", Body: "hello",
		NextAttemptAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, repo.Enqueue(ctx, n))

	// First failure requeues with backoff in the future.
	require.NoError(t, d.ProcessOnce(ctx))

	claimed, err := repo.ClaimDue(ctx, 10, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, claimed, "row should be backed off, not immediately due")

	// Force the row due again and fail a second time; attempts hits the cap.
	claimed, err = repo.ClaimDue(ctx, 10, time.Now().UTC().Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkFailed(ctx, n.ID, 2, "relay unavailable", time.Now().UTC(), true))

	count, err := repo.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, mailer.sent)
}

func TestDispatcher_FailureNeverLosesOtherRows(t *testing.T) {
	repo := setupOutbox(t)
	mailer := &fakeMailer{
		sendFunc: func(recipient string) error {
			if recipient == "broken@example.org" {
				return errors.New("mailbox full")
			}
			return nil
		},
	}
	d := NewDispatcher(repo, mailer, time.Second, 3)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Enqueue(ctx, &models.Notification{Recipient: "broken@example.org", Subject: "s", Body: "b", NextAttemptAt: past}))
	require.NoError(t, repo.Enqueue(ctx, &models.Notification{Recipient: "fine@example.org", Subject: "s", Body: "b", NextAttemptAt: past}))

	require.NoError(t, d.ProcessOnce(ctx))

	assert.Equal(t, []string{"fine@example.org"}, mailer.sent)
}
