// Package event defines the wire payloads exchanged over the broker.
// Events are ephemeral: ownership transfers to the broker on publish and
// nothing here is persisted.
package event

import (
	"github.com/example/notification-pipeline/internal/model"
)

// Event names act as routing keys within a channel-type topic, so that
// handler types can subscribe to distinct kinds independently.
const (
	EmailNotification      = "EmailNotificationEvent"
	EmailOrderConfirmation = "EmailOrderConfirmationEvent"
	SMSNotification        = "SmsNotificationEvent"
	SMSVerification        = "SmsVerificationEvent"
	PushNotification       = "PushNotificationEvent"
	PushOrderUpdate        = "PushOrderUpdateEvent"
)

// Kafka message header keys. RetryCount travels with the message so the
// backoff schedule survives process restarts.
const (
	HeaderEventName  = "event-name"
	HeaderRetryCount = "retry-count"
)

// Metadata correlates an event back to its Notification row so the
// consumer can report the delivery outcome.
type Metadata struct {
	NotificationID string `json:"notificationId"`
}

type EmailEvent struct {
	Emails       []string       `json:"emails"`
	Context      string         `json:"context"`
	Subject      string         `json:"subject"`
	Body         string         `json:"body"`
	TemplateData map[string]any `json:"templateData,omitempty"`
	Metadata     Metadata       `json:"metadata"`
	ChannelID    string         `json:"channelId"`
}

type SMSEvent struct {
	PhoneNumbers []string       `json:"phoneNumbers"`
	Message      string         `json:"message"`
	Context      string         `json:"context,omitempty"`
	TemplateData map[string]any `json:"templateData,omitempty"`
	Metadata     Metadata       `json:"metadata"`
	ChannelID    string         `json:"channelId"`
}

type PushEvent struct {
	DeviceTokens []string       `json:"deviceTokens"`
	Context      string         `json:"context,omitempty"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Data         map[string]any `json:"data,omitempty"`
	Metadata     Metadata       `json:"metadata"`
	ChannelID    string         `json:"channelId"`
}

// Envelope is the subset every channel payload shares, decoded by the
// consumer before dispatching to the typed handler.
type Envelope struct {
	Metadata  Metadata `json:"metadata"`
	ChannelID string   `json:"channelId"`
}

// TopicForChannel maps a channel type to its dispatch topic. Unknown
// types map to the empty string; callers route those to the DLQ.
func TopicForChannel(t model.ChannelType) string {
	switch t {
	case model.ChannelEmail:
		return "dispatch.email"
	case model.ChannelSMS:
		return "dispatch.sms"
	case model.ChannelPush:
		return "dispatch.push"
	case model.ChannelWhatsApp:
		return "dispatch.wa"
	case model.ChannelSlack:
		return "dispatch.slack"
	default:
		return ""
	}
}
