// Package store persists notifications, delivery logs, channels,
// templates and orders in Postgres via pgx.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// Store bundles the per-entity repositories over one pool.
type Store struct {
	Notifications *NotificationStore
	Channels      *ChannelStore
	Templates     *TemplateStore
	Orders        *OrderStore
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Notifications: &NotificationStore{pool: pool},
		Channels:      &ChannelStore{pool: pool},
		Templates:     &TemplateStore{pool: pool},
		Orders:        &OrderStore{pool: pool},
	}
}

// Pagination bounds shared by the list queries.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request into valid bounds: page >= 1, limit in
// [1, MaxLimit], defaults applied for zero values.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}
