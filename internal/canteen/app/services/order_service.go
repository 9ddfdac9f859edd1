package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/canteen/domain/models"
	"canteen-orders/internal/xpkg/logger"

	"github.com/shopspring/decimal"
)

const publishTimeout = 5 * time.Second

type OrderService struct {
	orderRepo     core.IOrderRepo
	messageBroker core.IPublisher
	mylog         logger.Logger
	slots         chan struct{}
	now           func() time.Time
}

func NewOrderService(
	orderRepo core.IOrderRepo,
	messageBroker core.IPublisher,
	maxConcurrent int,
	mylogger logger.Logger,
) *OrderService {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &OrderService{
		orderRepo:     orderRepo,
		messageBroker: messageBroker,
		mylog:         mylogger,
		slots:         make(chan struct{}, maxConcurrent),
		now:           time.Now,
	}
}

// PlaceOrder validates the request against the canteen stock and, in one
// transaction, decrements stock and stores the paid order with its items.
func (os *OrderService) PlaceOrder(ctx context.Context, user core.Principal, req dto.PlaceOrderRequest) (models.Order, error) {
	mylog := os.mylog.Action("place_order").With("user_id", user.UserID, "canteen_id", req.CanteenID)

	prepType, prepTime, err := validatePlaceOrder(req)
	if err != nil {
		mylog.Debug("Order request rejected", "reason", err.Error())
		return models.Order{}, err
	}

	select {
	case os.slots <- struct{}{}:
		defer func() { <-os.slots }()
	default:
		mylog.Warn("Rejecting order, too many placements in flight")
		return models.Order{}, core.ErrBusy
	}

	requested, dishIDs := sumByDish(req.Items)

	var order models.Order
	err = os.orderRepo.WithinTx(ctx, func(tx core.IOrderTx) error {
		canteen, err := tx.CanteenForShare(ctx, req.CanteenID)
		if err != nil {
			return err
		}
		if !canteen.IsOpen {
			return fmt.Errorf("%w: canteen %d is not accepting orders", core.ErrClosed, canteen.ID)
		}

		now := os.now()
		if prepType == models.PrepScheduled && !prepTime.After(now) {
			return fmt.Errorf("%w: preparation_time must be in the future", core.ErrValidation)
		}

		lines, err := tx.LockStock(ctx, req.CanteenID, dishIDs)
		if err != nil {
			return err
		}
		stock := make(map[int64]models.StockLine, len(lines))
		for _, line := range lines {
			stock[line.DishID] = line
		}

		for _, dishID := range dishIDs {
			if _, ok := stock[dishID]; !ok {
				return fmt.Errorf("%w: dish %d is not sold at canteen %d", core.ErrNotFound, dishID, req.CanteenID)
			}
		}
		for _, dishID := range dishIDs {
			line := stock[dishID]
			if line.Quantity < requested[dishID] {
				return fmt.Errorf("%w: dish %q (id %d): requested %d, available %d",
					core.ErrInsufficientStock, line.DishName, dishID, requested[dishID], line.Quantity)
			}
		}

		for _, dishID := range dishIDs {
			if err := tx.DecrementStock(ctx, req.CanteenID, dishID, requested[dishID]); err != nil {
				return err
			}
		}

		items := make([]models.OrderItem, 0, len(req.Items))
		total := decimal.Zero
		for _, item := range req.Items {
			price := stock[item.DishID].Price
			total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			items = append(items, models.OrderItem{
				DishID:    item.DishID,
				Quantity:  item.Quantity,
				UnitPrice: price,
			})
		}

		order = models.Order{
			UserID:          user.UserID,
			CanteenID:       req.CanteenID,
			Status:          models.StatusNew,
			CreatedAt:       now,
			TotalPrice:      total,
			PreparationType: prepType,
			PreparationTime: prepTime,
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}
		if err := tx.InsertOrderItems(ctx, order.ID, items); err != nil {
			return err
		}
		order.Items = items

		created := models.StatusLog{Status: models.StatusNew, ChangedBy: user.Username, ChangedAt: now}
		if err := tx.AppendStatusLog(ctx, order.ID, created); err != nil {
			return err
		}

		// Payment is simulated: a successful reservation pays the order.
		if err := tx.SetStatus(ctx, order.ID, models.StatusPaid); err != nil {
			return err
		}
		paid := models.StatusLog{Status: models.StatusPaid, ChangedBy: user.Username, ChangedAt: now, Note: "payment simulated"}
		if err := tx.AppendStatusLog(ctx, order.ID, paid); err != nil {
			return err
		}
		order.Status = models.StatusPaid
		order.History = []models.StatusLog{created, paid}
		return nil
	})
	if err != nil {
		if core.Kind(err) == "internal" {
			mylog.Error("Failed to place order", err)
		} else {
			mylog.Info("Order rejected", "kind", core.Kind(err), "reason", err.Error())
		}
		return models.Order{}, err
	}

	os.publishPlaced(ctx, order, req.Items)

	mylog.Info("Order placed", "order_id", order.ID, "total_price", order.TotalPrice.StringFixed(2))
	return order, nil
}

// GetOrder returns the order to its owner or to staff of its canteen.
func (os *OrderService) GetOrder(ctx context.Context, user core.Principal, orderID int64) (models.Order, error) {
	order, err := os.orderRepo.OrderByID(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.UserID != user.UserID && !user.WorksAt(order.CanteenID) {
		return models.Order{}, fmt.Errorf("%w: order %d belongs to another user", core.ErrForbidden, orderID)
	}
	return order, nil
}

func (os *OrderService) publishPlaced(ctx context.Context, order models.Order, items []dto.ItemRequest) {
	if os.messageBroker == nil {
		return
	}
	// the order is committed, so the client going away must not cancel the event
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	msg := dto.OrderPlacedMessage{
		OrderID:         order.ID,
		UserID:          order.UserID,
		CanteenID:       order.CanteenID,
		Status:          string(order.Status),
		TotalPrice:      order.TotalPrice,
		PreparationType: string(order.PreparationType),
		PreparationTime: order.PreparationTime,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
	if err := os.messageBroker.PublishOrderPlaced(pubCtx, msg); err != nil {
		os.mylog.Action("publish_failed").Error("Failed to publish order.placed", err, "order_id", order.ID)
	}
}

func validatePlaceOrder(req dto.PlaceOrderRequest) (models.PrepType, *time.Time, error) {
	if len(req.Items) == 0 {
		return "", nil, fmt.Errorf("%w: items must be a non-empty list", core.ErrValidation)
	}
	if len(req.Items) > core.MaxOrderLines {
		return "", nil, fmt.Errorf("%w: at most %d items per order", core.ErrValidation, core.MaxOrderLines)
	}
	if req.CanteenID <= 0 {
		return "", nil, fmt.Errorf("%w: canteen_id is required", core.ErrValidation)
	}
	for i, item := range req.Items {
		if item.DishID <= 0 {
			return "", nil, fmt.Errorf("%w: item %d: dish_id is required", core.ErrValidation, i+1)
		}
		if item.Quantity <= 0 || item.Quantity > core.MaxItemQuantity {
			return "", nil, fmt.Errorf("%w: item %d: quantity must be in range [1, %d]: %d",
				core.ErrValidation, i+1, core.MaxItemQuantity, item.Quantity)
		}
	}

	switch models.PrepType(req.PreparationType) {
	case "", models.PrepASAP:
		return models.PrepASAP, nil, nil
	case models.PrepScheduled:
		if req.PreparationTime == nil {
			return "", nil, fmt.Errorf("%w: preparation_time is required for scheduled orders", core.ErrValidation)
		}
		return models.PrepScheduled, req.PreparationTime, nil
	default:
		return "", nil, fmt.Errorf("%w: undefined preparation_type: %s", core.ErrValidation, req.PreparationType)
	}
}

// sumByDish totals quantities per dish and returns the dish ids in lock order.
func sumByDish(items []dto.ItemRequest) (map[int64]int, []int64) {
	requested := make(map[int64]int, len(items))
	for _, item := range items {
		requested[item.DishID] += item.Quantity
	}
	ids := make([]int64, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return requested, ids
}
