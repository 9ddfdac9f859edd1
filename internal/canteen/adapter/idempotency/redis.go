package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"canteen-orders/internal/canteen/app/core"
	"canteen-orders/internal/xpkg/config"
	"canteen-orders/internal/xpkg/logger"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// kv is the subset of redis.Cmdable the store needs.
type kv interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Redis struct {
	rdb     kv
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedis(rdb kv, ttl time.Duration) *Redis {
	return &Redis{
		rdb:     rdb,
		ttl:     ttl,
		lockTTL: core.IdempotencyLockTTL,
	}
}

// Connect opens a client and checks it with PING.
func Connect(ctx context.Context, cfg config.Redis, mylog logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	mylog.Action("redis_connected").Info("Connected to Redis", "addr", cfg.Addr)
	return rdb, nil
}

func (r *Redis) Begin(ctx context.Context, key string) (*core.StoredResponse, error) {
	// a second attempt covers a key that expired between SETNX and GET
	for range 2 {
		reserved, err := r.rdb.SetNX(ctx, key, pendingMarker, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if reserved {
			return nil, nil
		}

		raw, err := r.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read idempotency key: %w", err)
		}
		if string(raw) == pendingMarker {
			return nil, core.ErrRequestInFlight
		}

		var resp core.StoredResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode stored response: %w", err)
		}
		return &resp, nil
	}
	return nil, core.ErrRequestInFlight
}

func (r *Redis) Complete(ctx context.Context, key string, resp core.StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode stored response: %w", err)
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
