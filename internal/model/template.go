package model

import "time"

// Template is unique by (name, channel) among rows that are not
// soft-deleted. Version increments on every update.
type Template struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Channel   ChannelType `json:"channel"`
	Subject   string      `json:"subject,omitempty"`
	Body      string      `json:"body"`
	Variables []string    `json:"variables"`
	IsActive  bool        `json:"isActive"`
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	DeletedAt *time.Time  `json:"deletedAt,omitempty"`
}
