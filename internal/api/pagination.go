package api

import (
	"net/http"
	"strconv"

	"github.com/example/notification-pipeline/internal/store"
)

type PageMeta struct {
	CurrentPage     int  `json:"currentPage"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type PaginatedResponse[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// NewPaginatedResponse computes the page meta from the total match
// count. Data is never null in the JSON body, even for an empty page.
func NewPaginatedResponse[T any](data []T, total int, page store.PageRequest) PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := (total + page.Limit - 1) / page.Limit
	return PaginatedResponse[T]{
		Data: data,
		Meta: PageMeta{
			CurrentPage:     page.Page,
			ItemsPerPage:    page.Limit,
			TotalItems:      total,
			TotalPages:      totalPages,
			HasNextPage:     page.Page < totalPages,
			HasPreviousPage: page.Page > 1,
		},
	}
}

func parsePage(r *http.Request) store.PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return store.PageRequest{Page: page, Limit: limit}.Normalize()
}

func parseBoolPtr(raw string) *bool {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
