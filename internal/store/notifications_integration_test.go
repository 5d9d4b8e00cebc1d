//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/example/notification-pipeline/internal/model"
)

const notificationsSchema = `
CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	template_name TEXT NOT NULL,
	data JSONB,
	status TEXT NOT NULL,
	idempotency_key TEXT NOT NULL,
	retry_count INT NOT NULL DEFAULT 0,
	sent_at TIMESTAMPTZ,
	failed_at TIMESTAMPTZ,
	error_message TEXT,
	version INT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS notifications_idempotency_key_idx
	ON notifications (idempotency_key);
`

func integrationNotificationStore(t *testing.T) *NotificationStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), notificationsSchema)
	require.NoError(t, err)
	return &NotificationStore{pool: pool}
}

func createPendingNotification(t *testing.T, s *NotificationStore) model.Notification {
	t.Helper()
	n, err := s.Create(context.Background(), CreateNotificationInput{
		RecipientID:    "ada@example.com",
		ChannelID:      uuid.NewString(),
		TemplateName:   "welcome",
		Data:           map[string]any{"name": "Ada"},
		IdempotencyKey: uuid.NewString(),
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, n.Status)
	return n
}

func TestUpdateStatusTerminalSticky(t *testing.T) {
	s := integrationNotificationStore(t)
	ctx := context.Background()
	n := createPendingNotification(t, s)

	sent, err := s.UpdateStatus(ctx, n.ID, model.StatusSent, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	require.Nil(t, sent.FailedAt)
	require.Equal(t, n.Version+1, sent.Version)

	// A late failure report after the success must not win.
	after, err := s.UpdateStatus(ctx, n.ID, model.StatusFailed, "provider timeout")
	require.NoError(t, err)
	require.Equal(t, model.StatusSent, after.Status)
	require.Nil(t, after.FailedAt)
	require.Empty(t, after.ErrorMessage)
	require.Equal(t, sent.Version, after.Version)

	// A duplicate success is a silent no-op: same version, sent_at
	// stamped exactly once.
	again, err := s.UpdateStatus(ctx, n.ID, model.StatusSent, "")
	require.NoError(t, err)
	require.Equal(t, sent.Version, again.Version)
	require.True(t, sent.SentAt.Equal(*again.SentAt))
}

func TestUpdateStatusUnknownNotification(t *testing.T) {
	s := integrationNotificationStore(t)
	_, err := s.UpdateStatus(context.Background(), uuid.NewString(), model.StatusSent, "")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateDuplicateIdempotencyKeyRejected(t *testing.T) {
	s := integrationNotificationStore(t)
	ctx := context.Background()
	key := uuid.NewString()

	_, err := s.Create(ctx, CreateNotificationInput{
		RecipientID:    "ada@example.com",
		ChannelID:      "ch-1",
		TemplateName:   "welcome",
		IdempotencyKey: key,
	})
	require.NoError(t, err)

	_, err = s.Create(ctx, CreateNotificationInput{
		RecipientID:    "other@example.com",
		ChannelID:      "ch-2",
		TemplateName:   "welcome",
		IdempotencyKey: key,
	})
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestIncrementRetryCountStopsAtTerminal(t *testing.T) {
	s := integrationNotificationStore(t)
	ctx := context.Background()
	n := createPendingNotification(t, s)

	count, err := s.IncrementRetryCount(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = s.UpdateStatus(ctx, n.ID, model.StatusFailed, "exhausted")
	require.NoError(t, err)

	// Terminal rows are untouched; the stored count is returned as-is.
	count, err = s.IncrementRetryCount(ctx, n.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
