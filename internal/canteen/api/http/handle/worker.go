package handle

import (
	"context"
	"net/http"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"
)

type QueueLister interface {
	ListPendingOrders(ctx context.Context, canteenID int64) ([]models.Order, error)
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, staff core.Principal, orderID int64, newStatus string) (models.Order, error)
}

type WorkerHandler struct {
	queue   QueueLister
	status  StatusUpdater
	timeout time.Duration
	mylog   logger.Logger
}

func NewWorkerHandler(queue QueueLister, status StatusUpdater, timeout time.Duration, mylog logger.Logger) *WorkerHandler {
	return &WorkerHandler{
		queue:   queue,
		status:  status,
		timeout: timeout,
		mylog:   mylog,
	}
}

func (wh *WorkerHandler) Queue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff, err := principal(r)
		if err != nil {
			jsonError(w, err)
			return
		}

		// Require(OpViewQueue) guarantees an assigned canteen
		orders, err := wh.queue.ListPendingOrders(r.Context(), *staff.CanteenID)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, orders)
	}
}

func (wh *WorkerHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff, err := principal(r)
		if err != nil {
			jsonError(w, err)
			return
		}
		orderID, err := pathID(r, "orderID")
		if err != nil {
			jsonError(w, err)
			return
		}

		var req dto.UpdateStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), wh.timeout)
		defer cancel()

		order, err := wh.status.UpdateStatus(ctx, staff, orderID, req.Status)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}
