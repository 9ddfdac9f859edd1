package notsub

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"canteen-orders/internal/notsub/adapter/consumer"
	"canteen-orders/internal/notsub/app/core"
	"canteen-orders/internal/xpkg/config"
	xerrors "canteen-orders/internal/xpkg/errors"
	"canteen-orders/internal/xpkg/logger"
)

// Execute starts the notification subscriber
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	fs := flag.NewFlagSet("notification-subscriber", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	canteenID := fs.Int64("canteen-id", 0, "only announce orders placed at this canteen (0 = all)")
	queuePrefix := fs.String("queue", "canteen_notifications", "prefix of the queues declared by this subscriber")
	prefetch := fs.Int("prefetch", 10, "RabbitMQ prefetch count")

	if err := fs.Parse(args); err != nil {
		return xerrors.ErrParseCmd
	}
	if *showHelp {
		fs.Usage()
		return xerrors.ErrHelp
	}
	if *canteenID < 0 {
		return fmt.Errorf("canteen-id cannot be negative: %d", *canteenID)
	}
	if *prefetch <= 0 {
		return fmt.Errorf("prefetch must be positive: %d", *prefetch)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Failed to load config", err)
		return err
	}
	if !cfg.RMQ.Enabled() {
		return fmt.Errorf("%w: rabbitmq.host is not configured", xerrors.ErrMBConn)
	}

	params := &core.NotifParams{
		CanteenID:   *canteenID,
		QueuePrefix: *queuePrefix,
		Prefetch:    *prefetch,
	}
	notif := consumer.NewNotification(newCtx, context.Background(), cfg, params, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- notif.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		if err := <-runErrCh; err != nil && !errors.Is(err, context.Canceled) {
			mylog.Action("notification_subscriber_failed").Error("Subscriber stopped with error", err)
		}
		return notif.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil {
			mylog.Action("notification_subscriber_failed").Error("Subscriber failed", err)
			_ = notif.Stop(context.Background())
			return err
		}
		return notif.Stop(context.Background())
	}
}
