package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/store"
)

type templateRequest struct {
	Name      string            `json:"name"`
	Channel   model.ChannelType `json:"channel"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Variables []string          `json:"variables"`
	IsActive  *bool             `json:"isActive"`
}

func (r templateRequest) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !r.Channel.Valid() {
		return errors.New("channel must be one of email, sms, push, whatsapp, slack")
	}
	if r.Body == "" {
		return errors.New("body is required")
	}
	return nil
}

func (r templateRequest) toInput() store.TemplateInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return store.TemplateInput{
		Name:      r.Name,
		Channel:   r.Channel,
		Subject:   r.Subject,
		Body:      r.Body,
		Variables: r.Variables,
		IsActive:  active,
	}
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(ctx, w, err)
		return
	}

	tpl, err := s.Templates.Create(ctx, req.toInput())
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tpl, err := s.Templates.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) updateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(ctx, w, err)
		return
	}

	tpl, err := s.Templates.Update(ctx, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := s.Templates.SoftDelete(ctx, id); err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "template " + id + " has been removed"})
}

func (s *Server) restoreTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tpl, err := s.Templates.Restore(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.TemplateFilter{
		PageRequest: parsePage(r),
		Name:        q.Get("name"),
		Channel:     q.Get("channel"),
		IsActive:    parseBoolPtr(q.Get("isActive")),
	}
	items, total, err := s.Templates.List(ctx, filter)
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewPaginatedResponse(items, total, filter.PageRequest))
}
