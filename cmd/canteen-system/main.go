package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"canteen-orders/internal/canteen"
	"canteen-orders/internal/migrate"
	"canteen-orders/internal/notsub"
	xerrors "canteen-orders/internal/xpkg/errors"
	"canteen-orders/internal/xpkg/logger"
)

func main() {
	level := os.Getenv("CANTEEN_SERVICE_LOG_LEVEL")
	if level == "" {
		level = "DEBUG"
	}
	mylogger, err := logger.New(level)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}

	mylogger.Action("canteen_system_started").Info("Successfully started")
	fs := flag.NewFlagSet("main", flag.ExitOnError)
	mode := fs.String("mode", "", "service to run: canteen-service | notification-subscriber | migrate")

	// only --mode is parsed here, the rest belongs to the service
	args := os.Args[1:]
	modeArgs := []string{}
	for i, arg := range args {
		if strings.HasPrefix(arg, "--mode") || strings.HasPrefix(arg, "-mode") {
			modeArgs = args[:i+1]
			break
		}
	}
	if len(modeArgs) > 0 && !strings.Contains(modeArgs[len(modeArgs)-1], "=") && len(args) > len(modeArgs) {
		modeArgs = args[:len(modeArgs)+1]
	}

	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("canteen_system_failed").Error("Failed to parse flags", err)
		help(fs)
		return
	}

	if *mode == "" {
		mylogger.Action("canteen_system_failed").Error("Failed to start canteen system", xerrors.ErrModeFlag)
		help(fs)
		os.Exit(2)
	}

	remainingArgs := args[len(modeArgs):]

	ctx := context.Background()
	switch *mode {
	case "canteen-service", "cs":
		run(ctx, mylogger, "canteen-service", canteen.Execute, remainingArgs)
	case "notification-subscriber", "ns":
		run(ctx, mylogger, "notification-subscriber", notsub.Execute, remainingArgs)
	case "migrate", "mg":
		run(ctx, mylogger, "migrate", migrate.Execute, remainingArgs)
	default:
		mylogger.Action("canteen_system_failed").Error("Failed to start canteen system", xerrors.ErrUnknownService)
		help(fs)
		os.Exit(2)
	}
}

type executor func(ctx context.Context, mylog logger.Logger, args []string) error

func run(ctx context.Context, mylogger logger.Logger, service string, execute executor, args []string) {
	l := mylogger.With("service", service)
	action := strings.ReplaceAll(service, "-", "_")

	l.Action(action + "_started").Info("Successfully started")
	if err := execute(ctx, l, args); err != nil {
		if errors.Is(err, xerrors.ErrHelp) {
			return
		}
		l.Action(action+"_failed").Error("Error in "+service, err)
		log.Fatalf("failed to execute %s: %s", service, err)
	}
	l.Action(action + "_completed").Info("Successfully completed")
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExample:")
	fmt.Println("  ./canteen-system --mode=migrate --config-path=config.yaml")
	fmt.Println("  ./canteen-system --mode=canteen-service --port=3000 --max-concurrent=50")
	fmt.Println("  ./canteen-system --mode=notification-subscriber --canteen-id=1")
}
