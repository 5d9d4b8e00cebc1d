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

const templateColumns = `
id, name, channel, subject, body, variables, is_active, version, created_at, updated_at, deleted_at
`

// The partial unique index on (name, channel) WHERE deleted_at IS NULL is
// what actually enforces pair uniqueness; the pre-checks below exist to
// produce friendly conflict errors.
const insertTemplate = `
INSERT INTO templates (id, name, channel, subject, body, variables, is_active, version, created_at, updated_at)
VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,1,$8,$8)
RETURNING ` + templateColumns

const selectTemplate = `
SELECT ` + templateColumns + `
FROM templates
WHERE id = $1 AND deleted_at IS NULL
`

const selectActiveTemplate = `
SELECT ` + templateColumns + `
FROM templates
WHERE name = $1 AND channel = $2 AND is_active AND deleted_at IS NULL
`

const selectLiveTemplateByPair = `
SELECT id FROM templates
WHERE name = $1 AND channel = $2 AND deleted_at IS NULL
`

const updateTemplate = `
UPDATE templates SET
name = $2, channel = $3, subject = NULLIF($4,''), body = $5, variables = $6,
is_active = $7, version = version + 1, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + templateColumns

const softDeleteTemplate = `
UPDATE templates SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
`

const restoreTemplate = `
UPDATE templates SET deleted_at = NULL, updated_at = now()
WHERE id = $1 AND deleted_at IS NOT NULL
RETURNING ` + templateColumns

type TemplateStore struct {
	pool *pgxpool.Pool
}

func NewTemplateStore(pool *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{pool: pool}
}

type TemplateInput struct {
	Name      string
	Channel   model.ChannelType
	Subject   string
	Body      string
	Variables []string
	IsActive  bool
}

func (s *TemplateStore) Create(ctx context.Context, in TemplateInput) (model.Template, error) {
	var existingID string
	err := s.pool.QueryRow(ctx, selectLiveTemplateByPair, in.Name, string(in.Channel)).Scan(&existingID)
	if err == nil {
		return model.Template{}, fmt.Errorf("template %q for channel %q: %w", in.Name, in.Channel, model.ErrConflict)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Template{}, fmt.Errorf("check template pair: %w", err)
	}

	variables, err := json.Marshal(nonNil(in.Variables))
	if err != nil {
		return model.Template{}, fmt.Errorf("marshal template variables: %w", err)
	}
	row := s.pool.QueryRow(ctx, insertTemplate,
		uuid.NewString(), in.Name, string(in.Channel), in.Subject, in.Body, variables, in.IsActive, time.Now().UTC())
	tpl, err := scanTemplate(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Template{}, fmt.Errorf("template %q for channel %q: %w", in.Name, in.Channel, model.ErrConflict)
		}
		return model.Template{}, fmt.Errorf("insert template: %w", err)
	}
	return tpl, nil
}

func (s *TemplateStore) Get(ctx context.Context, id string) (model.Template, error) {
	tpl, err := scanTemplate(s.pool.QueryRow(ctx, selectTemplate, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, fmt.Errorf("template %s: %w", id, model.ErrNotFound)
		}
		return model.Template{}, fmt.Errorf("select template: %w", err)
	}
	return tpl, nil
}

// ActiveTemplate resolves the template used at send time: active and not
// soft-deleted. Satisfies render.TemplateSource.
func (s *TemplateStore) ActiveTemplate(ctx context.Context, name string, channel model.ChannelType) (model.Template, error) {
	tpl, err := scanTemplate(s.pool.QueryRow(ctx, selectActiveTemplate, name, string(channel)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, fmt.Errorf("template %q for channel %q: %w", name, channel, model.ErrNotFound)
		}
		return model.Template{}, fmt.Errorf("select active template: %w", err)
	}
	return tpl, nil
}

// Update applies the input and bumps version. Renaming or re-channeling
// onto an existing live (name, channel) pair is a conflict.
func (s *TemplateStore) Update(ctx context.Context, id string, in TemplateInput) (model.Template, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Template{}, err
	}
	if in.Name != current.Name || in.Channel != current.Channel {
		var existingID string
		err := s.pool.QueryRow(ctx, selectLiveTemplateByPair, in.Name, string(in.Channel)).Scan(&existingID)
		if err == nil && existingID != id {
			return model.Template{}, fmt.Errorf("template %q for channel %q: %w", in.Name, in.Channel, model.ErrConflict)
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, fmt.Errorf("check template pair: %w", err)
		}
	}

	variables, err := json.Marshal(nonNil(in.Variables))
	if err != nil {
		return model.Template{}, fmt.Errorf("marshal template variables: %w", err)
	}
	row := s.pool.QueryRow(ctx, updateTemplate,
		id, in.Name, string(in.Channel), in.Subject, in.Body, variables, in.IsActive)
	tpl, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, fmt.Errorf("template %s: %w", id, model.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return model.Template{}, fmt.Errorf("template %q for channel %q: %w", in.Name, in.Channel, model.ErrConflict)
		}
		return model.Template{}, fmt.Errorf("update template: %w", err)
	}
	return tpl, nil
}

func (s *TemplateStore) SoftDelete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, softDeleteTemplate, id)
	if err != nil {
		return fmt.Errorf("soft delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", id, model.ErrNotFound)
	}
	return nil
}

// Restore undoes a soft delete, failing with Conflict if a live template
// has since taken the (name, channel) pair.
func (s *TemplateStore) Restore(ctx context.Context, id string) (model.Template, error) {
	tpl, err := scanTemplate(s.pool.QueryRow(ctx, restoreTemplate, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, fmt.Errorf("deleted template %s: %w", id, model.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return model.Template{}, fmt.Errorf("restore template %s: %w", id, model.ErrConflict)
		}
		return model.Template{}, fmt.Errorf("restore template: %w", err)
	}
	return tpl, nil
}

type TemplateFilter struct {
	PageRequest
	Name     string
	Channel  string
	IsActive *bool
}

func (s *TemplateStore) List(ctx context.Context, f TemplateFilter) ([]model.Template, int, error) {
	page := f.PageRequest.Normalize()

	conds := []string{"deleted_at IS NULL"}
	var args []any
	if f.Name != "" {
		args = append(args, f.Name)
		conds = append(conds, "name = $"+strconv.Itoa(len(args)))
	}
	if f.Channel != "" {
		args = append(args, f.Channel)
		conds = append(conds, "channel = $"+strconv.Itoa(len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		conds = append(conds, "is_active = $"+strconv.Itoa(len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM templates WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM templates WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		templateColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, page.Limit, page.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []model.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanTemplate(row pgx.Row) (model.Template, error) {
	var (
		tpl       model.Template
		subject   *string
		variables []byte
	)
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Channel, &subject, &tpl.Body, &variables,
		&tpl.IsActive, &tpl.Version, &tpl.CreatedAt, &tpl.UpdatedAt, &tpl.DeletedAt)
	if err != nil {
		return model.Template{}, err
	}
	if subject != nil {
		tpl.Subject = *subject
	}
	if len(variables) > 0 {
		if err := json.Unmarshal(variables, &tpl.Variables); err != nil {
			return model.Template{}, fmt.Errorf("decode template variables: %w", err)
		}
	}
	return tpl, nil
}

func nonNil(vars []string) []string {
	if vars == nil {
		return []string{}
	}
	return vars
}
