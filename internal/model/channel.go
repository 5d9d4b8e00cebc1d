package model

import "time"

type ChannelType string

const (
	ChannelEmail    ChannelType = "email"
	ChannelSMS      ChannelType = "sms"
	ChannelPush     ChannelType = "push"
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelSlack    ChannelType = "slack"
)

func (t ChannelType) Valid() bool {
	switch t {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelWhatsApp, ChannelSlack:
		return true
	}
	return false
}

// Channel is a configured delivery endpoint. Configuration is a tagged
// variant keyed by Type; ValidateConfiguration enforces the per-type
// shape at create/update time.
type Channel struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          ChannelType    `json:"type"`
	IsActive      bool           `json:"isActive"`
	Configuration map[string]any `json:"configuration"`
	Description   string         `json:"description,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// requiredConfigFields is the per-type configuration schema. Credentials
// beyond these keys are carried opaquely.
var requiredConfigFields = map[ChannelType][]string{
	ChannelEmail:    {"provider", "fromEmail"},
	ChannelSMS:      {"provider", "accountSid", "authToken", "fromNumber"},
	ChannelPush:     {"provider"},
	ChannelWhatsApp: {"accountSid", "authToken", "fromNumber"},
	ChannelSlack:    {"webhookUrl"},
}

// ValidateConfiguration checks that cfg carries every field the channel
// type requires, with a non-empty string value.
func ValidateConfiguration(t ChannelType, cfg map[string]any) error {
	required, ok := requiredConfigFields[t]
	if !ok {
		return &ConfigError{Type: t, Missing: []string{"unknown channel type"}}
	}
	var missing []string
	for _, field := range required {
		v, present := cfg[field]
		if !present {
			missing = append(missing, field)
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Type: t, Missing: missing}
	}
	return nil
}

// AvailableChannel describes a channel type the system can be configured
// with, served by the catalog endpoint.
type AvailableChannel struct {
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	Type               ChannelType `json:"type"`
	NeedsConfiguration bool        `json:"needsConfiguration"`
}

func AvailableChannels() []AvailableChannel {
	return []AvailableChannel{
		{Name: "email", Description: "Email channel", Type: ChannelEmail, NeedsConfiguration: true},
		{Name: "sms", Description: "SMS channel", Type: ChannelSMS, NeedsConfiguration: true},
		{Name: "push", Description: "Push channel", Type: ChannelPush, NeedsConfiguration: true},
		{Name: "whatsapp", Description: "WhatsApp channel", Type: ChannelWhatsApp, NeedsConfiguration: true},
		{Name: "slack", Description: "Slack channel", Type: ChannelSlack, NeedsConfiguration: true},
	}
}
