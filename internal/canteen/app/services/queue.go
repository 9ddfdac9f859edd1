package services

import (
	"cmp"
	"context"
	"slices"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"
)

type QueueService struct {
	orderRepo core.IOrderRepo
	mylog     logger.Logger
}

func NewQueueService(orderRepo core.IOrderRepo, mylog logger.Logger) *QueueService {
	return &QueueService{orderRepo: orderRepo, mylog: mylog}
}

// ListPendingOrders returns the new and paid orders of a canteen in kitchen order.
func (qs *QueueService) ListPendingOrders(ctx context.Context, canteenID int64) ([]models.Order, error) {
	orders, err := qs.orderRepo.PendingOrders(ctx, canteenID)
	if err != nil {
		qs.mylog.Action("queue_failed").Error("Failed to load pending orders", err, "canteen_id", canteenID)
		return nil, err
	}

	pending := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Pending() {
			pending = append(pending, o)
		}
	}
	SortQueue(pending)

	qs.mylog.Action("queue_listed").Debug("Pending orders listed", "canteen_id", canteenID, "count", len(pending))
	return pending, nil
}

// SortQueue orders asap before scheduled. Asap orders go by created_at,
// scheduled ones by preparation_time (created_at when unset). Ties go by id.
func SortQueue(orders []models.Order) {
	slices.SortStableFunc(orders, func(a, b models.Order) int {
		if c := cmp.Compare(priority(a), priority(b)); c != 0 {
			return c
		}
		if c := queueTime(a).Compare(queueTime(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func priority(o models.Order) int {
	if o.PreparationType == models.PrepScheduled {
		return 1
	}
	return 0
}

func queueTime(o models.Order) time.Time {
	if o.PreparationType == models.PrepScheduled && o.PreparationTime != nil {
		return *o.PreparationTime
	}
	return o.CreatedAt
}
