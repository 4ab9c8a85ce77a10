package respcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	value, ok, err := c.Get(context.Background(), "dep-key", "appVersion=1.0.0")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestPutThenGet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "dep-key", "appVersion=1.0.0", []byte(`{"a":1}`)))

	value, ok, err := c.Get(ctx, "dep-key", "appVersion=1.0.0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(value))
}

func TestTTLSetOnlyOnFirstWrite(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "dep-key", "q1", []byte("1")))
	assert.Equal(t, time.Hour, mr.TTL("cache:dep-key"))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, c.Put(ctx, "dep-key", "q2", []byte("2")))
	assert.Equal(t, 30*time.Minute, mr.TTL("cache:dep-key"))

	mr.FastForward(31 * time.Minute)
	_, ok, err := c.Get(ctx, "dep-key", "q2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateDropsWholeScope(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "dep-key", "q1", []byte("1")))
	require.NoError(t, c.Put(ctx, "dep-key", "q2", []byte("2")))
	require.NoError(t, c.Put(ctx, "other-key", "q1", []byte("3")))

	require.NoError(t, c.Invalidate(ctx, "dep-key"))

	for _, q := range []string{"q1", "q2"} {
		_, ok, err := c.Get(ctx, "dep-key", q)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	_, ok, err := c.Get(ctx, "other-key", "q1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetErrorWhenStoreDown(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	mr.Close()

	_, _, err := c.Get(context.Background(), "dep-key", "q1")
	assert.Error(t, err)
}

// dropBeforeScript 在写入脚本执行前删除作用域, 模拟并发失效
type dropBeforeScript struct {
	mr  *miniredis.Miniredis
	key string
}

func (h dropBeforeScript) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h dropBeforeScript) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if name := cmd.Name(); name == "evalsha" || name == "eval" {
			h.mr.Del(h.key)
		}
		return next(ctx, cmd)
	}
}

func (h dropBeforeScript) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestPutAfterConcurrentInvalidateKeepsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := New(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "dep", "q1", []byte("1")))
	client.AddHook(dropBeforeScript{mr: mr, key: "cache:dep"})
	require.NoError(t, c.Put(ctx, "dep", "q2", []byte("2")))

	assert.Equal(t, time.Hour, mr.TTL("cache:dep"))
	mr.FastForward(48 * time.Hour)
	assert.False(t, mr.Exists("cache:dep"))
}

func TestPutRepairsScopeWithoutTTL(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	mr.HSet("cache:dep", "q1", "stale")
	require.Zero(t, mr.TTL("cache:dep"))

	require.NoError(t, c.Put(context.Background(), "dep", "q2", []byte("2")))
	assert.Equal(t, time.Hour, mr.TTL("cache:dep"))
}
