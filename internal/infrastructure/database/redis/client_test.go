package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
)

func newMiniClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Standalone_Success(t *testing.T) {
	client, _ := newMiniClient(t)
	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "standalone", client.config.Mode)
	assert.Equal(t, 20, client.config.PoolSize)
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := &RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1}
	client, err := NewClient(cfg, logging.NewNopLogger())
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestClient_Operations(t *testing.T) {
	client, mr := newMiniClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute).Err())
	assert.Equal(t, "v", client.Get(ctx, "k").Val())
	assert.Equal(t, int64(1), client.Exists(ctx, "k").Val())
	assert.True(t, mr.TTL("k") > 0)

	ok, err := client.SetNX(ctx, "k", "other", time.Minute).Result()
	require.NoError(t, err)
	assert.False(t, ok)

	keys, _, err := client.Scan(ctx, 0, "k*", 10).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	assert.Equal(t, int64(1), client.Del(ctx, "k").Val())
}

func TestClient_Closed(t *testing.T) {
	client, _ := newMiniClient(t)
	ctx := context.Background()

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	assert.ErrorIs(t, client.Ping(ctx), ErrClientClosed)
	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.SetNX(ctx, "k", "v", 0).Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Exists(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Scan(ctx, 0, "*", 10).Err(), ErrClientClosed)
	assert.True(t, errors.IsCode(client.Ping(ctx), errors.ErrCodeInternal))
}
