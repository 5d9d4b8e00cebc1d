package model

import "time"

type NotificationStatus string

const (
	StatusPending    NotificationStatus = "pending"
	StatusProcessing NotificationStatus = "processing"
	StatusSent       NotificationStatus = "sent"
	StatusFailed     NotificationStatus = "failed"
)

// Terminal reports whether the status may no longer change. A terminal
// notification ignores further status updates.
func (s NotificationStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

type Notification struct {
	ID             string             `json:"id"`
	RecipientID    string             `json:"recipientId"`
	ChannelID      string             `json:"channelId"`
	TemplateName   string             `json:"templateName"`
	Data           map[string]any     `json:"data"`
	Status         NotificationStatus `json:"status"`
	IdempotencyKey string             `json:"idempotencyKey"`
	RetryCount     int                `json:"retryCount"`
	SentAt         *time.Time         `json:"sentAt,omitempty"`
	FailedAt       *time.Time         `json:"failedAt,omitempty"`
	ErrorMessage   string             `json:"errorMessage,omitempty"`
	Version        int                `json:"version"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type DeliveryStatus string

const (
	DeliveryAttempting DeliveryStatus = "attempting"
	DeliverySuccess    DeliveryStatus = "success"
	DeliveryFailed     DeliveryStatus = "failed"
)

// DeliveryLog is one row of the append-only delivery audit trail. Rows
// are never updated after insert.
type DeliveryLog struct {
	ID             string         `json:"id"`
	NotificationID string         `json:"notificationId"`
	AttemptNumber  int            `json:"attemptNumber"`
	Status         DeliveryStatus `json:"status"`
	ResponseData   map[string]any `json:"responseData,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	AttemptedAt    time.Time      `json:"attemptedAt"`
}
