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

const orderColumns = `
id, user_id, order_number, status, total, metadata, notes, created_at, updated_at
`

const insertOrder = `
INSERT INTO orders (id, user_id, order_number, status, total, metadata, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$8)
RETURNING ` + orderColumns

const selectOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND deleted_at IS NULL
`

type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

type OrderInput struct {
	UserID   string
	Total    float64
	Metadata map[string]any
	Notes    string
}

func (s *OrderStore) Create(ctx context.Context, in OrderInput) (model.Order, error) {
	var metadata []byte
	if in.Metadata != nil {
		encoded, err := json.Marshal(in.Metadata)
		if err != nil {
			return model.Order{}, fmt.Errorf("marshal order metadata: %w", err)
		}
		metadata = encoded
	}

	now := time.Now().UTC()
	orderNumber := "ORD-" + strconv.FormatInt(now.UnixMilli(), 10)

	row := s.pool.QueryRow(ctx, insertOrder,
		uuid.NewString(), in.UserID, orderNumber, string(model.OrderPending), in.Total, metadata, in.Notes, now)
	order, err := scanOrder(row)
	if err != nil {
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

func (s *OrderStore) Get(ctx context.Context, id string) (model.Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, selectOrder, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, fmt.Errorf("order %s: %w", id, model.ErrNotFound)
		}
		return model.Order{}, fmt.Errorf("select order: %w", err)
	}
	return order, nil
}

type OrderFilter struct {
	PageRequest
	Status string
	UserID string
	Search string
}

func (s *OrderStore) List(ctx context.Context, f OrderFilter) ([]model.Order, int, error) {
	page := f.PageRequest.Normalize()

	conds := []string{"deleted_at IS NULL"}
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, "user_id = $"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(user_id ILIKE $"+n+" OR order_number ILIKE $"+n+")")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM orders WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, page.Limit, page.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		order    model.Order
		metadata []byte
		notes    *string
	)
	err := row.Scan(&order.ID, &order.UserID, &order.OrderNumber, &order.Status, &order.Total,
		&metadata, &notes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return model.Order{}, err
	}
	if notes != nil {
		order.Notes = *notes
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &order.Metadata); err != nil {
			return model.Order{}, fmt.Errorf("decode order metadata: %w", err)
		}
	}
	return order, nil
}
