package migrate

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"canteen-orders/internal/xpkg/config"
	xdb "canteen-orders/internal/xpkg/db"
	xerrors "canteen-orders/internal/xpkg/errors"
	"canteen-orders/internal/xpkg/logger"
)

type params struct {
	configPath string
	up         bool
	steps      int
}

// Execute applies or reverts the embedded schema migrations
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	p, err := parseParams(args)
	if err != nil {
		if !errors.Is(err, xerrors.ErrHelp) {
			mylog.Action("command_parse_failed").Error("Invalid command received", err)
		}
		return err
	}

	cfg, err := config.LoadConfig(p.configPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Failed to load config", err)
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	mylog.Action("migrate_started").Info("Running migrations", "up", p.up, "steps", p.steps)
	if err := xdb.Migrate(cfg.DB.MigrateURL(), p.up, p.steps, mylog); err != nil {
		return fmt.Errorf("%w: %v", xerrors.ErrDBConn, err)
	}
	return nil
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	direction := fs.String("direction", "up", "up | down")
	steps := fs.Int("steps", 0, "number of migrations to apply or revert (0 = all)")

	if err := fs.Parse(args); err != nil {
		return nil, xerrors.ErrParseCmd
	}
	if *showHelp {
		fs.Usage()
		return nil, xerrors.ErrHelp
	}

	if *direction != "up" && *direction != "down" {
		return nil, fmt.Errorf("direction must be up or down: %q", *direction)
	}
	if *steps < 0 {
		return nil, fmt.Errorf("steps cannot be negative: %d", *steps)
	}

	return &params{
		configPath: *configPath,
		up:         *direction == "up",
		steps:      *steps,
	}, nil
}
