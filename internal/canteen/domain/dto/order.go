package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlaceOrderRequest struct {
	CanteenID       int64         `json:"canteen_id"`
	Items           []ItemRequest `json:"items"`
	PreparationType string        `json:"preparation_type,omitempty"`
	PreparationTime *time.Time    `json:"preparation_time,omitempty"`
}

type ItemRequest struct {
	DishID   int64 `json:"dish_id"`
	Quantity int   `json:"quantity"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// OrderPlacedMessage goes to orders_topic with key canteen.<id>.<prep_type>.
type OrderPlacedMessage struct {
	OrderID         int64           `json:"order_id"`
	UserID          int64           `json:"user_id"`
	CanteenID       int64           `json:"canteen_id"`
	Status          string          `json:"status"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	PreparationType string          `json:"preparation_type"`
	PreparationTime *time.Time      `json:"preparation_time,omitempty"`
	Items           []ItemRequest   `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StatusUpdateMessage goes to notifications_fanout.
type StatusUpdateMessage struct {
	OrderID   int64     `json:"order_id"`
	CanteenID int64     `json:"canteen_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	Timestamp time.Time `json:"timestamp"`
}
