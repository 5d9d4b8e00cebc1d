package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/notification-pipeline/internal/model"
)

const notificationColumns = `
id, recipient_id, channel_id, template_name, data, status, idempotency_key,
retry_count, sent_at, failed_at, error_message, version, created_at, updated_at
`

const insertNotification = `
INSERT INTO notifications (
id, recipient_id, channel_id, template_name, data, status, idempotency_key,
retry_count, version, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,0,1,$8,$8)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING ` + notificationColumns

const selectNotification = `
SELECT ` + notificationColumns + `
FROM notifications
WHERE id = $1 AND deleted_at IS NULL
`

// updateNotificationStatus only touches rows that are not yet terminal,
// so a second transition to sent/failed is a no-op and sent_at/failed_at
// are set exactly once. The version bump makes concurrent duplicate
// deliveries observable instead of silently last-writer-wins.
const updateNotificationStatus = `
UPDATE notifications SET
status = $2,
error_message = NULLIF($3, ''),
sent_at = CASE WHEN $2 = 'sent' THEN now() ELSE sent_at END,
failed_at = CASE WHEN $2 = 'failed' THEN now() ELSE failed_at END,
version = version + 1,
updated_at = now()
WHERE id = $1 AND deleted_at IS NULL AND status NOT IN ('sent', 'failed')
RETURNING ` + notificationColumns

const incrementRetryCount = `
UPDATE notifications SET
retry_count = retry_count + 1,
status = 'processing',
version = version + 1,
updated_at = now()
WHERE id = $1 AND deleted_at IS NULL AND status NOT IN ('sent', 'failed')
RETURNING retry_count
`

const softDeleteNotification = `
UPDATE notifications SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

type CreateNotificationInput struct {
	RecipientID    string
	ChannelID      string
	TemplateName   string
	Data           map[string]any
	IdempotencyKey string
}

// Create inserts a pending notification. The unique index on
// idempotency_key is the load-bearing guarantee: concurrent creates with
// the same key race on the insert itself, and the loser gets
// model.ErrConflict, never a merged row.
func (s *NotificationStore) Create(ctx context.Context, in CreateNotificationInput) (model.Notification, error) {
	data, err := json.Marshal(in.Data)
	if err != nil {
		return model.Notification{}, fmt.Errorf("marshal notification data: %w", err)
	}

	row := s.pool.QueryRow(ctx, insertNotification,
		uuid.NewString(),
		in.RecipientID,
		in.ChannelID,
		in.TemplateName,
		data,
		string(model.StatusPending),
		in.IdempotencyKey,
		time.Now().UTC(),
	)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Notification{}, fmt.Errorf("idempotency key %q: %w", in.IdempotencyKey, model.ErrConflict)
		}
		return model.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) Get(ctx context.Context, id string) (model.Notification, error) {
	n, err := scanNotification(s.pool.QueryRow(ctx, selectNotification, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Notification{}, fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
		}
		return model.Notification{}, fmt.Errorf("select notification: %w", err)
	}
	return n, nil
}

// UpdateStatus transitions the notification and stamps sent_at/failed_at
// for terminal states. Updating an already-terminal notification is a
// no-op that returns the stored row unchanged.
func (s *NotificationStore) UpdateStatus(ctx context.Context, id string, status model.NotificationStatus, errorMessage string) (model.Notification, error) {
	row := s.pool.QueryRow(ctx, updateNotificationStatus, id, string(status), errorMessage)
	n, err := scanNotification(row)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Notification{}, fmt.Errorf("update notification status: %w", err)
	}
	// Either absent or already terminal; Get distinguishes the two.
	return s.Get(ctx, id)
}

// IncrementRetryCount bumps retry_count and marks the row processing,
// returning the new count. Terminal rows are left untouched.
func (s *NotificationStore) IncrementRetryCount(ctx context.Context, id string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, incrementRetryCount, id).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("increment retry count: %w", err)
	}
	n, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return n.RetryCount, nil
}

func (s *NotificationStore) SoftDelete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, softDeleteNotification, id)
	if err != nil {
		return fmt.Errorf("soft delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, model.ErrNotFound)
	}
	return nil
}

type NotificationFilter struct {
	PageRequest
	Status       string
	RecipientID  string
	ChannelID    string
	TemplateName string
	Search       string
}

// List returns a page of notifications newest-first, plus the total
// match count. Search does a case-insensitive substring match on the
// recipient.
func (s *NotificationStore) List(ctx context.Context, f NotificationFilter) ([]model.Notification, int, error) {
	page := f.PageRequest.Normalize()

	conds := []string{"deleted_at IS NULL"}
	var args []any

	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.RecipientID != "" {
		add("recipient_id = ?", f.RecipientID)
	}
	if f.ChannelID != "" {
		add("channel_id = ?", f.ChannelID)
	}
	if f.TemplateName != "" {
		add("template_name = ?", f.TemplateName)
	}
	if f.Search != "" {
		add("recipient_id ILIKE ?", "%"+f.Search+"%")
	}

	where := strings.Join(conds, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM notifications WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		notificationColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, page.Limit, page.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanNotification(row pgx.Row) (model.Notification, error) {
	var (
		n            model.Notification
		data         []byte
		errorMessage *string
	)
	err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.ChannelID,
		&n.TemplateName,
		&data,
		&n.Status,
		&n.IdempotencyKey,
		&n.RetryCount,
		&n.SentAt,
		&n.FailedAt,
		&errorMessage,
		&n.Version,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return model.Notification{}, err
	}
	if errorMessage != nil {
		n.ErrorMessage = *errorMessage
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return model.Notification{}, fmt.Errorf("decode notification data: %w", err)
		}
	}
	return n, nil
}
