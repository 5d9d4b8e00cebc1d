package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/notification-pipeline/internal/common"
	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/render"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// respondErr maps the domain error taxonomy onto HTTP statuses:
// Conflict 409, NotFound 404, Validation 400, everything else 500.
func (s *Server) respondErr(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case isValidationErr(err):
		status = http.StatusBadRequest
	}

	logger := common.WithContext(ctx, s.Logger)
	if status >= 500 {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("request rejected")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) badRequest(ctx context.Context, w http.ResponseWriter, err error) {
	logger := common.WithContext(ctx, s.Logger)
	logger.Warn().Err(err).Msg("invalid request")
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func isValidationErr(err error) bool {
	var configErr *model.ConfigError
	if errors.As(err, &configErr) {
		return true
	}
	var missingVars *render.MissingVariablesError
	return errors.As(err, &missingVars)
}
