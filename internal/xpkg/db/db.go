package db

import (
	"context"
	"fmt"
	"time"

	"canteen-orders/internal/xpkg/config"
	"canteen-orders/internal/xpkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	cfg   *config.Postgres
	mylog logger.Logger
	pool  *pgxpool.Pool
}

// Start opens the connection pool and verifies it with a ping.
func Start(ctx context.Context, dbCfg *config.Postgres, mylog logger.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if dbCfg.MaxConns > 0 {
		poolCfg.MaxConns = dbCfg.MaxConns
	}
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	mylog.Action("db_connected").Info("Connected to PostgreSQL", "host", dbCfg.Host, "database", dbCfg.Database)
	return &DB{cfg: dbCfg, mylog: mylog, pool: pool}, nil
}

// FromPool wraps an already opened pool, used by integration tests.
func FromPool(pool *pgxpool.Pool, mylog logger.Logger) *DB {
	return &DB{pool: pool, mylog: mylog}
}

func (d *DB) GetPool() *pgxpool.Pool {
	return d.pool
}

// IsAlive pings the DB to verify it's responsive
func (d *DB) IsAlive(ctx context.Context) error {
	if d.pool == nil {
		return fmt.Errorf("DB is not initialized")
	}
	if err := d.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	if d.pool != nil {
		d.pool.Close()
	}
	return nil
}
