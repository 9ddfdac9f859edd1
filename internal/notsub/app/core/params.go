package core

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type NotifParams struct {
	CanteenID   int64
	QueuePrefix string
	Prefetch    int
}

type IConsumer interface {
	Close() error
	Consume(ctx context.Context, queue, exchange, bindingKey, consumer string) (<-chan amqp.Delivery, error)
}
