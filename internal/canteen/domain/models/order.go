package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew    Status = "new"
	StatusPaid   Status = "paid"
	StatusReady  Status = "ready"
	StatusClosed Status = "closed"
)

type PrepType string

const (
	PrepASAP      PrepType = "asap"
	PrepScheduled PrepType = "scheduled"
)

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	CanteenID       int64           `json:"canteen_id"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	PreparationType PrepType        `json:"preparation_type"`
	PreparationTime *time.Time      `json:"preparation_time,omitempty"`
	Items           []OrderItem     `json:"items"`
	History         []StatusLog     `json:"history,omitempty"`
}

type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	DishID    int64           `json:"dish_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type StatusLog struct {
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Pending reports whether the order still waits in the kitchen queue.
func (o Order) Pending() bool {
	return o.Status == StatusNew || o.Status == StatusPaid
}
