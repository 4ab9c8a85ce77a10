// Package respcache 缓存更新检查的计算结果, 以部署Key为作用域整体失效
package respcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "cache:"
	DefaultTTL = time.Hour
)

// Cache 基于Redis Hash的响应缓存, 每个作用域一个Hash, field为规范化后的查询
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func scopeKey(scope string) string {
	return keyPrefix + scope
}

// Get 读取缓存, 未命中返回 ok=false
func (c *Cache) Get(ctx context.Context, scope, query string) ([]byte, bool, error) {
	value, err := c.client.HGet(ctx, scopeKey(scope), query).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// putScript 写入并在作用域没有过期时间时补设
var putScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// Put 写入缓存; 作用域没有过期时间时为整个作用域设置过期时间,
// 这样即使没有显式失效, 过期的作用域也会自行清理
func (c *Cache) Put(ctx context.Context, scope, query string, value []byte) error {
	return putScript.Run(ctx, c.client, []string{scopeKey(scope)}, query, value, c.ttl.Milliseconds()).Err()
}

// Invalidate 删除整个作用域
func (c *Cache) Invalidate(ctx context.Context, scope string) error {
	return c.client.Del(ctx, scopeKey(scope)).Err()
}
