package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"canteen-orders/internal/xpkg/config"
	xerrors "canteen-orders/internal/xpkg/errors"
	"canteen-orders/internal/xpkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrdersExchange        = "orders_topic"
	NotificationsExchange = "notifications_fanout"

	reconnInterval = 5 * time.Second
)

var errNotConfirmed = errors.New("rabbitmq: publish was not confirmed")

// Client owns one connection and one confirm-mode channel.
type Client struct {
	ctx      context.Context
	cfg      config.RabbitMQ
	mylog    logger.Logger
	prefetch int

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	reconnecting bool
}

func Dial(ctx context.Context, cfg config.RabbitMQ, mylog logger.Logger, prefetch int) (*Client, error) {
	c := &Client{
		ctx:      ctx,
		cfg:      cfg,
		mylog:    mylog,
		prefetch: prefetch,
	}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrMBConn, err)
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp.Dial(c.cfg.URL())
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		conn.Close()
		return err
	}
	if err := declareExchanges(ch); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.mu.Unlock()
	return nil
}

func declareExchanges(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(OrdersExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", OrdersExchange, err)
	}
	if err := ch.ExchangeDeclare(NotificationsExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", NotificationsExchange, err)
	}
	return nil
}

func (c *Client) IsAlive() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		return xerrors.ErrMBConn
	}
	if c.ch == nil || c.ch.IsClosed() {
		return xerrors.ErrMBCh
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil && !c.ch.IsClosed() {
		if err := c.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

// Publish sends v as a persistent JSON message and waits for the broker confirm.
func (c *Client) Publish(ctx context.Context, exchange, routingKey string, v any) error {
	if err := c.IsAlive(); err != nil {
		c.mylog.Action("publish").Error("Connection to rabbitmq is closed", err)
		go c.reconnect(c.ctx)
		return err
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	conf, err := ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	ok, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait confirm from %s: %w", exchange, err)
	}
	if !ok {
		return errNotConfirmed
	}
	return nil
}

// Consume declares a durable queue bound to exchange and starts delivering from it.
func (c *Client) Consume(ctx context.Context, queue, exchange, bindingKey, consumer string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, bindingKey, exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return ch.ConsumeWithContext(ctx, queue, consumer, false, false, false, false, nil)
}

func (c *Client) reconnect(ctx context.Context) {
	c.mu.Lock()
	if c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	t := time.NewTicker(reconnInterval)
	defer t.Stop()
	log := c.mylog.Action("rabbitmq_reconnecting")

	for {
		select {
		case <-t.C:
			if err := c.connect(); err != nil {
				log.Warn("rabbitmq failed to reconnect", "error", err.Error())
				continue
			}
			log.Info("rabbitmq reconnected")
			return
		case <-ctx.Done():
			return
		}
	}
}
