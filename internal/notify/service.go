// Package notify implements the notification creation flow: idempotent
// persistence followed by publication of a channel-typed event.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/store"
)

type NotificationStore interface {
	Create(ctx context.Context, in store.CreateNotificationInput) (model.Notification, error)
}

type ChannelSource interface {
	Get(ctx context.Context, id string) (model.Channel, error)
}

type Publisher interface {
	Publish(ctx context.Context, payload any, channelType model.ChannelType, eventName string) error
}

type Service struct {
	Notifications NotificationStore
	Channels      ChannelSource
	Publisher     Publisher
	Logger        zerolog.Logger
}

type CreateInput struct {
	RecipientID    string
	ChannelID      string
	TemplateName   string
	Data           map[string]any
	IdempotencyKey string
}

// Create persists a pending notification and publishes the matching
// channel-typed event. A duplicate idempotency key fails with
// model.ErrConflict before anything is published. A publish failure is
// returned to the caller: the row stays pending with no event in
// flight, and no automatic re-publish sweep exists.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Notification, error) {
	ch, err := s.Channels.Get(ctx, in.ChannelID)
	if err != nil {
		return model.Notification{}, err
	}

	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}

	n, err := s.Notifications.Create(ctx, store.CreateNotificationInput{
		RecipientID:    in.RecipientID,
		ChannelID:      in.ChannelID,
		TemplateName:   in.TemplateName,
		Data:           in.Data,
		IdempotencyKey: in.IdempotencyKey,
	})
	if err != nil {
		return model.Notification{}, err
	}

	payload, eventName, ok := buildEvent(n, ch)
	if !ok {
		s.Logger.Warn().
			Str("notification_id", n.ID).
			Str("channel_type", string(ch.Type)).
			Msg("no event payload for channel type, notification left pending")
		return n, nil
	}

	if err := s.Publisher.Publish(ctx, payload, ch.Type, eventName); err != nil {
		return n, fmt.Errorf("notification %s created but publish failed: %w", n.ID, err)
	}

	s.Logger.Info().
		Str("notification_id", n.ID).
		Str("event", eventName).
		Msg("notification created and event published")
	return n, nil
}

func buildEvent(n model.Notification, ch model.Channel) (any, string, bool) {
	body, _ := n.Data["message"].(string)
	if body == "" {
		body = "You have a new notification"
	}
	meta := event.Metadata{NotificationID: n.ID}

	switch ch.Type {
	case model.ChannelEmail:
		return event.EmailEvent{
			Emails:       []string{n.RecipientID},
			Context:      n.TemplateName,
			Subject:      "Notification: " + n.TemplateName,
			Body:         body,
			TemplateData: n.Data,
			Metadata:     meta,
			ChannelID:    ch.ID,
		}, event.EmailNotification, true
	case model.ChannelSMS:
		return event.SMSEvent{
			PhoneNumbers: []string{n.RecipientID},
			Message:      body,
			Context:      n.TemplateName,
			TemplateData: n.Data,
			Metadata:     meta,
			ChannelID:    ch.ID,
		}, event.SMSNotification, true
	case model.ChannelPush:
		return event.PushEvent{
			DeviceTokens: []string{n.RecipientID},
			Context:      n.TemplateName,
			Title:        n.TemplateName,
			Body:         body,
			Data:         n.Data,
			Metadata:     meta,
			ChannelID:    ch.ID,
		}, event.PushNotification, true
	default:
		return nil, "", false
	}
}
