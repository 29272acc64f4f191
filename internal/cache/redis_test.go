package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewaste-backend/internal/config"
)

func TestLocalCacheRoundTrip(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.TTLSeconds = 30
	require.NoError(t, Init(cfg))
	require.Nil(t, GetClient())
	ctx := context.Background()

	_, ok := GetCachedRequest(ctx, 1)
	assert.False(t, ok)

	CacheRequest(ctx, 1, []byte(`{"request_id":1}`))
	CacheHistory(ctx, 1, []byte(`[]`))
	CacheRequest(ctx, 2, []byte(`{"request_id":2}`))

	data, ok := GetCachedRequest(ctx, 1)
	require.True(t, ok)
	assert.JSONEq(t, `{"request_id":1}`, string(data))

	InvalidateRequest(ctx, 1)
	_, ok = GetCachedRequest(ctx, 1)
	assert.False(t, ok)
	_, ok = GetCachedHistory(ctx, 1)
	assert.False(t, ok)

	_, ok = GetCachedRequest(ctx, 2)
	assert.True(t, ok)
}

func TestInitUnreachableRedisFallsBack(t *testing.T) {
	cfg := &config.Config{}
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	assert.Error(t, Init(cfg))
	assert.Nil(t, GetClient())

	CacheRequest(context.Background(), 9, []byte("x"))
	_, ok := GetCachedRequest(context.Background(), 9)
	assert.True(t, ok)
}

func TestFlush(t *testing.T) {
	require.NoError(t, Init(&config.Config{}))
	ctx := context.Background()

	CacheRequest(ctx, 3, []byte("a"))
	CacheHistory(ctx, 3, []byte("b"))
	require.NoError(t, Flush(ctx))

	_, ok := GetCachedRequest(ctx, 3)
	assert.False(t, ok)
	_, ok = GetCachedHistory(ctx, 3)
	assert.False(t, ok)
}
