// Package api exposes the HTTP surface: notification creation and
// queries, order fan-out, and the channel and template registries.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/notify"
	"github.com/example/notification-pipeline/internal/order"
	"github.com/example/notification-pipeline/internal/store"
)

type NotificationService interface {
	Create(ctx context.Context, in notify.CreateInput) (model.Notification, error)
}

type NotificationReader interface {
	Get(ctx context.Context, id string) (model.Notification, error)
	List(ctx context.Context, f store.NotificationFilter) ([]model.Notification, int, error)
	SoftDelete(ctx context.Context, id string) error
	ListDeliveryLogs(ctx context.Context, notificationID string) ([]model.DeliveryLog, error)
}

type OrderService interface {
	Create(ctx context.Context, in order.CreateInput) (model.Order, error)
}

type OrderReader interface {
	Get(ctx context.Context, id string) (model.Order, error)
	List(ctx context.Context, f store.OrderFilter) ([]model.Order, int, error)
}

type ChannelRegistry interface {
	Create(ctx context.Context, in store.ChannelInput) (model.Channel, error)
	Get(ctx context.Context, id string) (model.Channel, error)
	Update(ctx context.Context, id string, in store.ChannelInput) (model.Channel, error)
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, f store.ChannelFilter) ([]model.Channel, int, error)
}

type TemplateRegistry interface {
	Create(ctx context.Context, in store.TemplateInput) (model.Template, error)
	Get(ctx context.Context, id string) (model.Template, error)
	Update(ctx context.Context, id string, in store.TemplateInput) (model.Template, error)
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (model.Template, error)
	List(ctx context.Context, f store.TemplateFilter) ([]model.Template, int, error)
}

type Server struct {
	Notifications     NotificationService
	NotificationStore NotificationReader
	Orders            OrderService
	OrderStore        OrderReader
	Channels          ChannelRegistry
	Templates         TemplateRegistry
	Logger            zerolog.Logger
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/v1/notifications", func(r chi.Router) {
		r.Post("/", s.createNotification)
		r.Get("/", s.listNotifications)
		r.Get("/{id}", s.getNotification)
		r.Get("/{id}/delivery-logs", s.listDeliveryLogs)
		r.Delete("/{id}", s.deleteNotification)
	})

	r.Route("/v1/orders", func(r chi.Router) {
		r.Post("/", s.createOrder)
		r.Get("/", s.listOrders)
		r.Get("/{id}", s.getOrder)
	})

	r.Route("/v1/channels", func(r chi.Router) {
		r.Get("/available", s.availableChannels)
		r.Post("/", s.createChannel)
		r.Get("/", s.listChannels)
		r.Get("/{id}", s.getChannel)
		r.Patch("/{id}", s.updateChannel)
		r.Delete("/{id}", s.deleteChannel)
	})

	r.Route("/v1/templates", func(r chi.Router) {
		r.Post("/", s.createTemplate)
		r.Get("/", s.listTemplates)
		r.Get("/{id}", s.getTemplate)
		r.Patch("/{id}", s.updateTemplate)
		r.Delete("/{id}", s.deleteTemplate)
		r.Post("/{id}/restore", s.restoreTemplate)
	})

	return r
}
