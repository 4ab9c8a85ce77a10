package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ota-server/internal/pkg/config"
)

// Open 创建Redis客户端并检查连通性
func Open(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  config.Duration(cfg.DialTimeout, 2*time.Second),
		ReadTimeout:  config.Duration(cfg.ReadTimeout, 500*time.Millisecond),
		WriteTimeout: config.Duration(cfg.WriteTimeout, 500*time.Millisecond),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis连接测试失败: %w", err)
	}

	return client, nil
}
