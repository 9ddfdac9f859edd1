package canteen

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"canteen-orders/internal/canteen/api/http"
	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/xpkg/config"
	xerrors "canteen-orders/internal/xpkg/errors"
	"canteen-orders/internal/xpkg/logger"
)

type params struct {
	canteenParams *core.CanteenParams
	configPath    string
	cfg           *config.Config
}

// Execute starts the canteen ordering service
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	params, err := parseParams(args)
	if err != nil {
		if !errors.Is(err, xerrors.ErrHelp) {
			mylog.Action("command_parse_failed").Error("Invalid command received", err)
		}
		return err
	}
	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	server := http.NewServer(newCtx, context.Background(), params.cfg, params.canteenParams, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("canteen_service_failed").Error("Server failed unexpectedly", err)
			_ = server.Stop(context.Background())
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return nil
	}
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("canteen-service", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")

	port := fs.Int("port", 3000, "Port to run the canteen service")
	maxConcurrent := fs.Int("max-concurrent", 50, "Max order placements in flight")

	if err := fs.Parse(args); err != nil {
		return nil, xerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, xerrors.ErrHelp
	}

	return &params{
		canteenParams: &core.CanteenParams{
			Port:          *port,
			MaxConcurrent: *maxConcurrent,
		},
		configPath: *configPath,
	}, nil
}

func validateParams(params *params) error {
	canteenParams := params.canteenParams
	if canteenParams.Port <= 0 || canteenParams.Port >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", canteenParams.Port)
	}

	if canteenParams.MaxConcurrent <= 0 {
		return fmt.Errorf("max number of concurrent orders must be positive: %d", canteenParams.MaxConcurrent)
	}

	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg
	return nil
}
