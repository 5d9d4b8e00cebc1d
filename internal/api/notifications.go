package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/store"
)

var (
	notificationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_notification_requests_total",
		Help: "Notification create requests by outcome",
	}, []string{"outcome"})
	notificationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "api_notification_request_duration_seconds",
		Help:    "Latency of notification create requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
)

type createNotificationRequest struct {
	RecipientID    string         `json:"recipientId"`
	ChannelID      string         `json:"channelId"`
	TemplateName   string         `json:"templateName"`
	Data           map[string]any `json:"data"`
	IdempotencyKey string         `json:"idempotencyKey"`
}

func (r createNotificationRequest) validate() error {
	if r.RecipientID == "" {
		return errors.New("recipientId is required")
	}
	if r.ChannelID == "" {
		return errors.New("channelId is required")
	}
	if r.TemplateName == "" {
		return errors.New("templateName is required")
	}
	return nil
}

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("api").Start(r.Context(), "create_notification")
	defer span.End()
	start := time.Now()

	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		notificationRequests.WithLabelValues("bad_request").Inc()
		s.badRequest(ctx, w, err)
		return
	}
	if err := req.validate(); err != nil {
		notificationRequests.WithLabelValues("bad_request").Inc()
		s.badRequest(ctx, w, err)
		return
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}

	n, err := s.Notifications.Create(ctx, notify.CreateInput{
		RecipientID:    req.RecipientID,
		ChannelID:      req.ChannelID,
		TemplateName:   req.TemplateName,
		Data:           req.Data,
		IdempotencyKey: req.IdempotencyKey,
	})
	outcome := "created"
	if err != nil {
		outcome = "error"
		notificationRequests.WithLabelValues(outcome).Inc()
		notificationLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		s.respondErr(ctx, w, err)
		return
	}

	span.SetAttributes(attribute.String("notification.id", n.ID))
	notificationRequests.WithLabelValues(outcome).Inc()
	notificationLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	s.writeJSON(w, http.StatusCreated, n)
}

func (s *Server) getNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := s.NotificationStore.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.NotificationFilter{
		PageRequest:  parsePage(r),
		Status:       q.Get("status"),
		RecipientID:  q.Get("recipientId"),
		ChannelID:    q.Get("channelId"),
		TemplateName: q.Get("templateName"),
		Search:       q.Get("search"),
	}
	items, total, err := s.NotificationStore.List(ctx, filter)
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewPaginatedResponse(items, total, filter.PageRequest))
}

func (s *Server) listDeliveryLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := s.NotificationStore.Get(ctx, id); err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	logs, err := s.NotificationStore.ListDeliveryLogs(ctx, id)
	if err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	if logs == nil {
		logs = []model.DeliveryLog{}
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := s.NotificationStore.SoftDelete(ctx, id); err != nil {
		s.respondErr(ctx, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "notification " + id + " has been removed"})
}
