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

const channelColumns = `
id, name, type, is_active, configuration, description, created_at, updated_at
`

const insertChannel = `
INSERT INTO channels (id, name, type, is_active, configuration, description, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$7)
RETURNING ` + channelColumns

const selectChannel = `
SELECT ` + channelColumns + `
FROM channels
WHERE id = $1 AND deleted_at IS NULL
`

const updateChannel = `
UPDATE channels SET
name = $2, type = $3, is_active = $4, configuration = $5,
description = NULLIF($6,''), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + channelColumns

const softDeleteChannel = `
UPDATE channels SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

type ChannelInput struct {
	Name          string
	Type          model.ChannelType
	IsActive      bool
	Configuration map[string]any
	Description   string
}

// Create validates the configuration against the channel type's schema
// before persisting.
func (s *ChannelStore) Create(ctx context.Context, in ChannelInput) (model.Channel, error) {
	if err := model.ValidateConfiguration(in.Type, in.Configuration); err != nil {
		return model.Channel{}, err
	}
	cfg, err := json.Marshal(in.Configuration)
	if err != nil {
		return model.Channel{}, fmt.Errorf("marshal channel configuration: %w", err)
	}
	row := s.pool.QueryRow(ctx, insertChannel,
		uuid.NewString(), in.Name, string(in.Type), in.IsActive, cfg, in.Description, time.Now().UTC())
	ch, err := scanChannel(row)
	if err != nil {
		return model.Channel{}, fmt.Errorf("insert channel: %w", err)
	}
	return ch, nil
}

func (s *ChannelStore) Get(ctx context.Context, id string) (model.Channel, error) {
	ch, err := scanChannel(s.pool.QueryRow(ctx, selectChannel, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Channel{}, fmt.Errorf("channel %s: %w", id, model.ErrNotFound)
		}
		return model.Channel{}, fmt.Errorf("select channel: %w", err)
	}
	return ch, nil
}

func (s *ChannelStore) Update(ctx context.Context, id string, in ChannelInput) (model.Channel, error) {
	if err := model.ValidateConfiguration(in.Type, in.Configuration); err != nil {
		return model.Channel{}, err
	}
	cfg, err := json.Marshal(in.Configuration)
	if err != nil {
		return model.Channel{}, fmt.Errorf("marshal channel configuration: %w", err)
	}
	row := s.pool.QueryRow(ctx, updateChannel, id, in.Name, string(in.Type), in.IsActive, cfg, in.Description)
	ch, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Channel{}, fmt.Errorf("channel %s: %w", id, model.ErrNotFound)
		}
		return model.Channel{}, fmt.Errorf("update channel: %w", err)
	}
	return ch, nil
}

func (s *ChannelStore) SoftDelete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, softDeleteChannel, id)
	if err != nil {
		return fmt.Errorf("soft delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", id, model.ErrNotFound)
	}
	return nil
}

type ChannelFilter struct {
	PageRequest
	Type     string
	IsActive *bool
}

func (s *ChannelStore) List(ctx context.Context, f ChannelFilter) ([]model.Channel, int, error) {
	page := f.PageRequest.Normalize()

	conds := []string{"deleted_at IS NULL"}
	var args []any
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, "type = $"+strconv.Itoa(len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, "is_active = $"+strconv.Itoa(len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM channels WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count channels: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM channels WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		channelColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, page.Limit, page.Offset())

	channels, err := s.queryChannels(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return channels, total, nil
}

// ListActive returns every active channel, the default fan-out target
// set for orders.
func (s *ChannelStore) ListActive(ctx context.Context) ([]model.Channel, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM channels WHERE deleted_at IS NULL AND is_active ORDER BY created_at ASC",
		channelColumns,
	)
	return s.queryChannels(ctx, query)
}

// ActiveByIDs resolves an explicit channel selection, silently dropping
// ids that are inactive, soft-deleted or unknown.
func (s *ChannelStore) ActiveByIDs(ctx context.Context, ids []string) ([]model.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		"SELECT %s FROM channels WHERE deleted_at IS NULL AND is_active AND id = ANY($1) ORDER BY created_at ASC",
		channelColumns,
	)
	return s.queryChannels(ctx, query, ids)
}

func (s *ChannelStore) queryChannels(ctx context.Context, query string, args ...any) ([]model.Channel, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var out []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func scanChannel(row pgx.Row) (model.Channel, error) {
	var (
		ch          model.Channel
		cfg         []byte
		description *string
	)
	err := row.Scan(&ch.ID, &ch.Name, &ch.Type, &ch.IsActive, &cfg, &description, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return model.Channel{}, err
	}
	if description != nil {
		ch.Description = *description
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &ch.Configuration); err != nil {
			return model.Channel{}, fmt.Errorf("decode channel configuration: %w", err)
		}
	}
	return ch, nil
}
