package services

import (
	"context"
	"fmt"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"
)

// staff may only move orders to these statuses
var staffTargets = map[models.Status]bool{
	models.StatusReady:  true,
	models.StatusClosed: true,
}

type StatusService struct {
	orderRepo     core.IOrderRepo
	messageBroker core.IPublisher
	mylog         logger.Logger
	now           func() time.Time
}

func NewStatusService(orderRepo core.IOrderRepo, messageBroker core.IPublisher, mylog logger.Logger) *StatusService {
	return &StatusService{
		orderRepo:     orderRepo,
		messageBroker: messageBroker,
		mylog:         mylog,
		now:           time.Now,
	}
}

func (ss *StatusService) UpdateStatus(ctx context.Context, staff core.Principal, orderID int64, newStatus string) (models.Order, error) {
	mylog := ss.mylog.Action("update_status").With("order_id", orderID, "new_status", newStatus, "changed_by", staff.Username)

	target := models.Status(newStatus)
	if !staffTargets[target] {
		return models.Order{}, fmt.Errorf("%w: status must be one of ready, closed: %q", core.ErrValidation, newStatus)
	}
	if staff.CanteenID == nil {
		return models.Order{}, fmt.Errorf("%w: no canteen assigned", core.ErrForbidden)
	}

	var (
		order     models.Order
		oldStatus models.Status
		changedAt = ss.now()
	)
	err := ss.orderRepo.WithinTx(ctx, func(tx core.IOrderTx) error {
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.CanteenID != *staff.CanteenID {
			return fmt.Errorf("%w: order %d belongs to another canteen", core.ErrForbidden, orderID)
		}

		oldStatus = order.Status
		if err := tx.SetStatus(ctx, orderID, target); err != nil {
			return err
		}
		entry := models.StatusLog{Status: target, ChangedBy: staff.Username, ChangedAt: changedAt}
		if err := tx.AppendStatusLog(ctx, orderID, entry); err != nil {
			return err
		}
		order.Status = target
		return nil
	})
	if err != nil {
		mylog.Info("Status update rejected", "kind", core.Kind(err), "reason", err.Error())
		return models.Order{}, err
	}

	if ss.messageBroker != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		msg := dto.StatusUpdateMessage{
			OrderID:   order.ID,
			CanteenID: order.CanteenID,
			OldStatus: string(oldStatus),
			NewStatus: string(target),
			ChangedBy: staff.Username,
			Timestamp: changedAt,
		}
		if err := ss.messageBroker.PublishStatusUpdate(pubCtx, msg); err != nil {
			mylog.Error("Failed to publish status update", err)
		}
	}

	mylog.Info("Order status updated", "old_status", oldStatus)
	return order, nil
}
