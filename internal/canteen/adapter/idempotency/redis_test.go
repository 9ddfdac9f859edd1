package idempotency

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"canteen-orders/internal/canteen/app/core"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func toString(v interface{}) string {
	switch v := v.(type) {
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func (m *memKV) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = toString(value)
	m.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (m *memKV) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = toString(value)
	m.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (m *memKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestBeginCompleteReplay(t *testing.T) {
	kv := newMemKV()
	store := NewRedis(kv, 24*time.Hour)
	ctx := context.Background()

	resp, err := store.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, core.IdempotencyLockTTL, kv.ttls["k1"])

	_, err = store.Begin(ctx, "k1")
	require.ErrorIs(t, err, core.ErrRequestInFlight)
	require.ErrorIs(t, err, core.ErrConflict)

	require.NoError(t, store.Complete(ctx, "k1", core.StoredResponse{Status: 201, Body: []byte(`{"id":1}`)}))
	assert.Equal(t, 24*time.Hour, kv.ttls["k1"])

	resp, err = store.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 201, resp.Status)
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))
}

func TestReleaseFreesKey(t *testing.T) {
	store := NewRedis(newMemKV(), time.Hour)
	ctx := context.Background()

	_, err := store.Begin(ctx, "k2")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k2"))

	resp, err := store.Begin(ctx, "k2")
	require.NoError(t, err)
	assert.Nil(t, resp)
}
