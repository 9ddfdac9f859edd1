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

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, user core.Principal, req dto.PlaceOrderRequest) (models.Order, error)
	GetOrder(ctx context.Context, user core.Principal, orderID int64) (models.Order, error)
}

type OrderHandler struct {
	orders  OrderPlacer
	timeout time.Duration
	mylog   logger.Logger
}

func NewOrderHandler(orders OrderPlacer, timeout time.Duration, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders:  orders,
		timeout: timeout,
		mylog:   mylog,
	}
}

func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := principal(r)
		if err != nil {
			jsonError(w, err)
			return
		}

		var req dto.PlaceOrderRequest
		if err := decodeJSON(r, &req); err != nil {
			oh.mylog.Action("parse_failed").Debug("Failed to parse order", "user_id", user.UserID)
			jsonError(w, err)
			return
		}
		oh.mylog.Action("received").Debug("Received order", "user_id", user.UserID, "canteen_id", req.CanteenID, "number_of_items", len(req.Items))

		// a disconnecting client cancels the context and rolls the placement back
		ctx, cancel := context.WithTimeout(r.Context(), oh.timeout)
		defer cancel()

		order, err := oh.orders.PlaceOrder(ctx, user, req)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusCreated, order)
	}
}

func (oh *OrderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := principal(r)
		if err != nil {
			jsonError(w, err)
			return
		}
		orderID, err := pathID(r, "orderID")
		if err != nil {
			jsonError(w, err)
			return
		}

		order, err := oh.orders.GetOrder(r.Context(), user, orderID)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}
