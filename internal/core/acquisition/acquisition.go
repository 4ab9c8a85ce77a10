// Package acquisition 处理客户端的更新检查与状态上报
package acquisition

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ota-server/internal/core/ledger"
	"ota-server/internal/model"
)

const (
	DefaultCacheTimeout   = 150 * time.Millisecond
	DefaultHistoryTimeout = 400 * time.Millisecond
)

// DeploymentResolver 按部署Key查找部署, 未知或已轮换的Key返回 NotFound
type DeploymentResolver interface {
	ResolveByKey(ctx context.Context, deploymentKey string) (*model.Deployment, error)
}

// HistoryReader 读取部署的发布历史(旧→新)
type HistoryReader interface {
	List(ctx context.Context, deploymentID int64) ([]model.Release, error)
}

// ResponseCache 响应缓存
type ResponseCache interface {
	Get(ctx context.Context, scope, query string) ([]byte, bool, error)
	Put(ctx context.Context, scope, query string, value []byte) error
}

// MetricsSink 异步指标写入, 不阻塞调用方
type MetricsSink interface {
	Submit(job ledger.Job) bool
}

// URLSigner 生成包下载地址
type URLSigner interface {
	DownloadURL(blobKey string) string
}

// Options 超时配置, 零值使用默认值
type Options struct {
	CacheTimeout   time.Duration
	HistoryTimeout time.Duration
}

// Service 更新检查编排
type Service struct {
	resolver DeploymentResolver
	history  HistoryReader
	cache    ResponseCache
	sink     MetricsSink
	signer   URLSigner
	logger   *zap.Logger

	cacheTimeout   time.Duration
	historyTimeout time.Duration

	group singleflight.Group
}

func New(resolver DeploymentResolver, history HistoryReader, cache ResponseCache, sink MetricsSink,
	signer URLSigner, logger *zap.Logger, opts Options) *Service {
	if opts.CacheTimeout <= 0 {
		opts.CacheTimeout = DefaultCacheTimeout
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = DefaultHistoryTimeout
	}
	return &Service{
		resolver:       resolver,
		history:        history,
		cache:          cache,
		sink:           sink,
		signer:         signer,
		logger:         logger,
		cacheTimeout:   opts.CacheTimeout,
		historyTimeout: opts.HistoryTimeout,
	}
}
