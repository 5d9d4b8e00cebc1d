// Package order implements the order workflow: persist the order, then
// fan one pending notification and one channel-typed event out to every
// resolved channel.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/store"
)

type OrderStore interface {
	Create(ctx context.Context, in store.OrderInput) (model.Order, error)
}

type ChannelResolver interface {
	ListActive(ctx context.Context) ([]model.Channel, error)
	ActiveByIDs(ctx context.Context, ids []string) ([]model.Channel, error)
}

type NotificationStore interface {
	Create(ctx context.Context, in store.CreateNotificationInput) (model.Notification, error)
}

type Publisher interface {
	Publish(ctx context.Context, payload any, channelType model.ChannelType, eventName string) error
}

type Service struct {
	Orders        OrderStore
	Channels      ChannelResolver
	Notifications NotificationStore
	Publisher     Publisher
	Logger        zerolog.Logger
}

type CreateInput struct {
	UserID     string
	Total      float64
	Metadata   map[string]any
	Notes      string
	ChannelIDs []string
}

// Create persists the order and fans out across the resolved channel
// set: the explicit selection filtered to active channels, or every
// active channel when none are named. Channel outcomes are independent;
// one channel's failure never aborts the others, and an empty resolved
// set is a no-op.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Order, error) {
	ord, err := s.Orders.Create(ctx, store.OrderInput{
		UserID:   in.UserID,
		Total:    in.Total,
		Metadata: in.Metadata,
		Notes:    in.Notes,
	})
	if err != nil {
		return model.Order{}, err
	}
	logger := s.Logger.With().Str("order_id", ord.ID).Str("order_number", ord.OrderNumber).Logger()
	logger.Info().Msg("order created")

	var channels []model.Channel
	if len(in.ChannelIDs) > 0 {
		channels, err = s.Channels.ActiveByIDs(ctx, in.ChannelIDs)
	} else {
		channels, err = s.Channels.ListActive(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve channels, no notifications sent")
		return ord, nil
	}
	if len(channels) == 0 {
		logger.Warn().Msg("no active channels resolved, no notifications sent")
		return ord, nil
	}

	for _, ch := range channels {
		s.notifyChannel(ctx, logger, ord, ch)
	}
	return ord, nil
}

func (s *Service) notifyChannel(ctx context.Context, logger zerolog.Logger, ord model.Order, ch model.Channel) {
	templateName, data, ok := orderTemplate(ord, ch.Type)
	if !ok {
		logger.Warn().Str("channel_type", string(ch.Type)).Msg("channel type has no order notification, skipping")
		return
	}

	// The timestamp suffix makes repeated fan-outs for the same order and
	// channel produce distinct keys.
	key := fmt.Sprintf("order-%s-%s-%s-%d", ord.ID, ch.Type, ch.ID, time.Now().UnixMilli())

	n, err := s.Notifications.Create(ctx, store.CreateNotificationInput{
		RecipientID:    ord.UserID,
		ChannelID:      ch.ID,
		TemplateName:   templateName,
		Data:           data,
		IdempotencyKey: key,
	})
	if err != nil {
		logger.Error().Err(err).Str("channel_id", ch.ID).Msg("failed to create order notification")
		return
	}

	payload, eventName := orderEvent(ord, ch, n, data)
	if err := s.Publisher.Publish(ctx, payload, ch.Type, eventName); err != nil {
		logger.Error().Err(err).Str("channel_id", ch.ID).Str("notification_id", n.ID).
			Msg("failed to publish order notification event")
		return
	}
	logger.Info().Str("channel_id", ch.ID).Str("notification_id", n.ID).Str("event", eventName).
		Msg("order notification queued")
}

func orderTemplate(ord model.Order, t model.ChannelType) (string, map[string]any, bool) {
	switch t {
	case model.ChannelEmail:
		return "order-confirmation", map[string]any{
			"customerName": ord.UserID,
			"orderId":      ord.OrderNumber,
			"orderDate":    ord.CreatedAt.Format("2006-01-02"),
			"total":        ord.Total,
		}, true
	case model.ChannelSMS:
		return "order-sms", map[string]any{
			"orderId": ord.OrderNumber,
			"total":   ord.Total,
		}, true
	case model.ChannelPush:
		return "order-push", map[string]any{
			"orderId": ord.OrderNumber,
			"total":   ord.Total,
		}, true
	default:
		return "", nil, false
	}
}

func orderEvent(ord model.Order, ch model.Channel, n model.Notification, data map[string]any) (any, string) {
	meta := event.Metadata{NotificationID: n.ID}
	switch ch.Type {
	case model.ChannelSMS:
		return event.SMSEvent{
			PhoneNumbers: []string{ord.UserID},
			Message:      fmt.Sprintf("Order #%s confirmed! Thank you for your purchase.", ord.OrderNumber),
			Context:      n.TemplateName,
			TemplateData: data,
			Metadata:     meta,
			ChannelID:    ch.ID,
		}, event.SMSNotification
	case model.ChannelPush:
		return event.PushEvent{
			DeviceTokens: []string{ord.UserID},
			Context:      n.TemplateName,
			Title:        "Order Confirmation",
			Body:         fmt.Sprintf("Your order #%s has been confirmed!", ord.OrderNumber),
			Data:         data,
			Metadata:     meta,
			ChannelID:    ch.ID,
		}, event.PushOrderUpdate
	default:
		return event.EmailEvent{
			Emails:       []string{ord.UserID},
			Context:      n.TemplateName,
			Subject:      "Order Confirmation",
			Body:         fmt.Sprintf("Your order #%s has been created successfully!", ord.OrderNumber),
			TemplateData: data,
			Metadata:     meta,
			ChannelID:    ch.ID,
		}, event.EmailOrderConfirmation
	}
}
