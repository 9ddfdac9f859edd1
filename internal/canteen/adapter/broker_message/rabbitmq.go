package brokermessage

import (
	"context"
	"fmt"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/canteen/domain/dto"
	"canteen-orders/internal/xpkg/config"
	"canteen-orders/internal/xpkg/logger"
	"canteen-orders/internal/xpkg/rabbitmq"
)

// publisher is the part of rabbitmq.Client the adapter uses.
type publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, v any) error
	Close() error
}

type RabbitMQ struct {
	client publisher
	mylog  logger.Logger
}

// New connects to the broker, or returns a no-op publisher when none is configured.
func New(ctx context.Context, cfg config.RabbitMQ, mylog logger.Logger) (core.IPublisher, error) {
	if !cfg.Enabled() {
		mylog.Action("mb_disabled").Warn("rabbitmq.host is empty, order events will not be published")
		return Noop{}, nil
	}

	client, err := rabbitmq.Dial(ctx, cfg, mylog, 0)
	if err != nil {
		return nil, err
	}
	return &RabbitMQ{client: client, mylog: mylog}, nil
}

func (r *RabbitMQ) Close() error {
	return r.client.Close()
}

func (r *RabbitMQ) PublishOrderPlaced(ctx context.Context, msg dto.OrderPlacedMessage) error {
	key := OrderRoutingKey(msg.CanteenID, msg.PreparationType)
	if err := r.client.Publish(ctx, rabbitmq.OrdersExchange, key, msg); err != nil {
		return err
	}
	r.mylog.Action("order_published").Debug("Published order.placed", "order_id", msg.OrderID, "routing_key", key)
	return nil
}

func (r *RabbitMQ) PublishStatusUpdate(ctx context.Context, msg dto.StatusUpdateMessage) error {
	if err := r.client.Publish(ctx, rabbitmq.NotificationsExchange, "", msg); err != nil {
		return err
	}
	r.mylog.Action("status_update_published").Debug("Published status update", "order_id", msg.OrderID, "new_status", msg.NewStatus)
	return nil
}

// OrderRoutingKey is canteen.<id>.<prep_type>, e.g. canteen.3.asap.
func OrderRoutingKey(canteenID int64, prepType string) string {
	return fmt.Sprintf("canteen.%d.%s", canteenID, prepType)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Close() error { return nil }

func (Noop) PublishOrderPlaced(context.Context, dto.OrderPlacedMessage) error { return nil }

func (Noop) PublishStatusUpdate(context.Context, dto.StatusUpdateMessage) error { return nil }
