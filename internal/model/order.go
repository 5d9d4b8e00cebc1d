package model

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	OrderNumber string         `json:"orderNumber"`
	Status      OrderStatus    `json:"status"`
	Total       float64        `json:"total"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
