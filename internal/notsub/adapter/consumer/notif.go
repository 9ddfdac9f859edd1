package consumer

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"canteen-orders/internal/notsub/app/core"
	"canteen-orders/internal/notsub/app/services"
	"canteen-orders/internal/xpkg/config"
	"canteen-orders/internal/xpkg/logger"
	"canteen-orders/internal/xpkg/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Notification struct {
	cfg    *config.Config
	params *core.NotifParams
	mylog  logger.Logger
	mb     core.IConsumer
	out    io.Writer
	ctx    context.Context
	appCtx context.Context

	outMu sync.Mutex
	mu    sync.Mutex
	wg    sync.WaitGroup
}

func NewNotification(
	ctx context.Context,
	appCtx context.Context,
	cfg *config.Config,
	params *core.NotifParams,
	mylog logger.Logger,
) *Notification {
	return &Notification{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		params: params,
		mylog:  mylog,
		out:    os.Stdout,
	}
}

// Run subscribes to status updates and placed orders. It returns when ctx is done.
func (n *Notification) Run() error {
	mylog := n.mylog.Action("run_notifications")

	if err := n.initializeRabbitMQ(); err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection")

	statusCh, err := n.mb.Consume(n.appCtx, n.params.QueuePrefix+".status", rabbitmq.NotificationsExchange, "", "")
	if err != nil {
		return fmt.Errorf("failed to consume status updates: %w", err)
	}
	ordersCh, err := n.mb.Consume(n.appCtx, n.params.QueuePrefix+".orders", rabbitmq.OrdersExchange, ordersBindingKey(n.params.CanteenID), "")
	if err != nil {
		return fmt.Errorf("failed to consume placed orders: %w", err)
	}

	mylog.Info("Waiting for notifications", "canteen_id", n.params.CanteenID)
	n.work(statusCh, ordersCh)
	return nil
}

func (n *Notification) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.mylog.Action("graceful_shutdown_started").Info("Shutting down")

	// wait for in-flight messages
	n.wg.Wait()

	if n.mb != nil {
		if err := n.mb.Close(); err != nil {
			n.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		n.mylog.Action("mb_closed").Info("Message broker closed")
	}

	n.mylog.Action("graceful_shutdown_completed").Info("Successfully shut down")
	return nil
}

func (n *Notification) work(channels ...<-chan amqp.Delivery) {
	var loops sync.WaitGroup
	for _, ch := range channels {
		loops.Add(1)
		go func(ch <-chan amqp.Delivery) {
			defer loops.Done()
			for {
				select {
				case <-n.ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					n.wg.Add(1)
					n.handle(msg)
					n.wg.Done()
				}
			}
		}(ch)
	}
	loops.Wait()
	n.mylog.Action("work_shutdown").Info("Stopped message consumption")
}

func (n *Notification) handle(msg amqp.Delivery) {
	line, err := services.Render(msg.Exchange, msg.Body)
	if err != nil {
		n.mylog.Action("process_msg").Error("Failed to process notification", err, "exchange", msg.Exchange)
		// malformed messages are never requeued
		if err := msg.Nack(false, false); err != nil {
			n.mylog.Action("nack").Error("Failed to nack", err)
		}
		return
	}

	n.outMu.Lock()
	fmt.Fprintln(n.out, line)
	n.outMu.Unlock()

	n.mylog.Action("notification_received").Debug("Notification delivered", "exchange", msg.Exchange, "routing_key", msg.RoutingKey)
	if err := msg.Ack(false); err != nil {
		n.mylog.Action("ack").Error("Failed to ack", err)
	}
}

func (n *Notification) initializeRabbitMQ() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	mb, err := rabbitmq.Dial(n.appCtx, n.cfg.RMQ, n.mylog, n.params.Prefetch)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	n.mb = mb
	return nil
}

// ordersBindingKey matches canteen.<id>.* or every canteen when id is zero.
func ordersBindingKey(canteenID int64) string {
	if canteenID <= 0 {
		return "canteen.#"
	}
	return fmt.Sprintf("canteen.%d.*", canteenID)
}
