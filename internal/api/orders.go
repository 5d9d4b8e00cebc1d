package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/notification-pipeline/internal/order"
	"github.com/example/notification-pipeline/internal/store"
)

type createOrderRequest struct {
	UserID     string         `json:"userId"`
	Total      float64        `json:"total"`
	Metadata   map[string]any `json:"metadata"`
	Notes      string         `json:"notes"`
	ChannelIDs []string       `json:"channelIds"`
}

func (r createOrderRequest) validate() error {
	if r.UserID == "" {
		return errors.New("userId is required")
	}
	if r.Total < 0 {
		return errors.New("total must not be negative")
	}
	return nil
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("api").Start(r.Context(), "create_order")
	defer span.End()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(ctx, w, err)
		return
	}

	ord, err := s.Orders.Create(ctx, order.CreateInput{
		UserID:     req.UserID,
		Total:      req.Total,
		Metadata:   req.Metadata,
		Notes:      req.Notes,
		ChannelIDs: req.ChannelIDs,
	})
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}

	span.SetAttributes(attribute.String("order.id", ord.ID))
	s.writeJSON(w, http.StatusCreated, ord)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ord, err := s.OrderStore.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ord)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.OrderFilter{
		PageRequest: parsePage(r),
		Status:      q.Get("status"),
		UserID:      q.Get("userId"),
		Search:      q.Get("search"),
	}
	items, total, err := s.OrderStore.List(ctx, filter)
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewPaginatedResponse(items, total, filter.PageRequest))
}
