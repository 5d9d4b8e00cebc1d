package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/store"
)

type channelRequest struct {
	Name          string            `json:"name"`
	Type          model.ChannelType `json:"type"`
	IsActive      *bool             `json:"isActive"`
	Configuration map[string]any    `json:"configuration"`
	Description   string            `json:"description"`
}

func (r channelRequest) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !r.Type.Valid() {
		return errors.New("type must be one of email, sms, push, whatsapp, slack")
	}
	if r.Configuration == nil {
		return errors.New("configuration is required")
	}
	return nil
}

func (r channelRequest) toInput() store.ChannelInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return store.ChannelInput{
		Name:          r.Name,
		Type:          r.Type,
		IsActive:      active,
		Configuration: r.Configuration,
		Description:   r.Description,
	}
}

func (s *Server) createChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(ctx, w, err)
		return
	}

	ch, err := s.Channels.Create(ctx, req.toInput())
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ch)
}

func (s *Server) getChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ch, err := s.Channels.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ch)
}

func (s *Server) updateChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(ctx, w, err)
		return
	}

	ch, err := s.Channels.Update(ctx, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ch)
}

func (s *Server) deleteChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := s.Channels.SoftDelete(ctx, id); err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "channel " + id + " has been removed"})
}

func (s *Server) listChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.ChannelFilter{
		PageRequest: parsePage(r),
		Type:        q.Get("type"),
		IsActive:    parseBoolPtr(q.Get("isActive")),
	}
	items, total, err := s.Channels.List(ctx, filter)
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewPaginatedResponse(items, total, filter.PageRequest))
}

func (s *Server) availableChannels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, model.AvailableChannels())
}
