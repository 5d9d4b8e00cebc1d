package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/model"
	"github.com/example/notification-pipeline/internal/provider"
	"github.com/example/notification-pipeline/internal/render"
)

// ChannelSource resolves the channel a message is addressed to; its
// configuration supplies the sender identity.
type ChannelSource interface {
	Get(ctx context.Context, id string) (model.Channel, error)
}

// EmailHandler delivers EmailNotificationEvent and
// EmailOrderConfirmationEvent messages. When the event carries template
// data, the referenced template is rendered; otherwise the literal
// subject and body are sent as-is.
type EmailHandler struct {
	Renderer *render.Renderer
	Channels ChannelSource
	Sender   provider.EmailSender
}

func (h *EmailHandler) Handle(ctx context.Context, eventName string, payload []byte) (provider.Response, error) {
	var ev event.EmailEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode email event: %w", err))
	}
	if len(ev.Emails) == 0 {
		return nil, backoff.Permanent(errors.New("email event has no recipients"))
	}

	ch, err := h.Channels.Get(ctx, ev.ChannelID)
	if err != nil {
		return nil, err
	}
	from, _ := ch.Configuration["fromEmail"].(string)

	subject, body := ev.Subject, ev.Body
	if ev.Context != "" && ev.TemplateData != nil {
		rendered, err := h.Renderer.Render(ctx, ev.Context, model.ChannelEmail, ev.TemplateData)
		if err != nil {
			return nil, err
		}
		if rendered.Subject != "" {
			subject = rendered.Subject
		}
		body = rendered.Body
	}

	return h.Sender.SendEmail(ctx, provider.EmailMessage{
		To:      ev.Emails,
		From:    from,
		Subject: subject,
		Body:    body,
	})
}

// SMSHandler delivers SmsNotificationEvent and SmsVerificationEvent
// messages.
type SMSHandler struct {
	Renderer *render.Renderer
	Channels ChannelSource
	Sender   provider.SMSSender
}

func (h *SMSHandler) Handle(ctx context.Context, eventName string, payload []byte) (provider.Response, error) {
	var ev event.SMSEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode sms event: %w", err))
	}
	if len(ev.PhoneNumbers) == 0 {
		return nil, backoff.Permanent(errors.New("sms event has no recipients"))
	}

	ch, err := h.Channels.Get(ctx, ev.ChannelID)
	if err != nil {
		return nil, err
	}
	from, _ := ch.Configuration["fromNumber"].(string)

	message := ev.Message
	if ev.Context != "" && ev.TemplateData != nil {
		rendered, err := h.Renderer.Render(ctx, ev.Context, model.ChannelSMS, ev.TemplateData)
		if err != nil {
			return nil, err
		}
		message = rendered.Body
	}

	return h.Sender.SendSMS(ctx, provider.SMSMessage{
		To:   ev.PhoneNumbers,
		From: from,
		Body: message,
	})
}

// PushHandler delivers PushNotificationEvent and PushOrderUpdateEvent
// messages. A rendered template's subject becomes the push title.
type PushHandler struct {
	Renderer *render.Renderer
	Channels ChannelSource
	Sender   provider.PushSender
}

func (h *PushHandler) Handle(ctx context.Context, eventName string, payload []byte) (provider.Response, error) {
	var ev event.PushEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode push event: %w", err))
	}
	if len(ev.DeviceTokens) == 0 {
		return nil, backoff.Permanent(errors.New("push event has no device tokens"))
	}

	if _, err := h.Channels.Get(ctx, ev.ChannelID); err != nil {
		return nil, err
	}

	title, body := ev.Title, ev.Body
	if ev.Context != "" && ev.Data != nil {
		rendered, err := h.Renderer.Render(ctx, ev.Context, model.ChannelPush, ev.Data)
		if err != nil {
			return nil, err
		}
		if rendered.Subject != "" {
			title = rendered.Subject
		}
		body = rendered.Body
	}

	return h.Sender.SendPush(ctx, provider.PushMessage{
		Tokens: ev.DeviceTokens,
		Title:  title,
		Body:   body,
		Data:   ev.Data,
	})
}
