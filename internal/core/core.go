package core

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ota-server/internal/core/acquisition"
	"ota-server/internal/core/history"
	"ota-server/internal/core/ledger"
	"ota-server/internal/core/respcache"
	"ota-server/internal/pkg/config"
	"ota-server/internal/repository"
)

// CoreEngine 发布与更新检查核心, 持有各组件并管理其生命周期
type CoreEngine struct {
	Ledger      *ledger.Ledger
	Dispatcher  *ledger.Dispatcher
	Cache       *respcache.Cache
	History     *history.Store
	Acquisition *acquisition.Service

	logger  *zap.Logger
	mu      sync.Mutex
	running bool
	stopped bool
	done    chan struct{}
}

// NewCoreEngine 创建核心引擎
func NewCoreEngine(cfg *config.Config, db *gorm.DB, rdb redis.Cmdable, signer acquisition.URLSigner, logger *zap.Logger) *CoreEngine {
	l := ledger.New(rdb, logger)
	dispatcher := ledger.NewDispatcher(l, logger,
		cfg.Ledger.Workers,
		cfg.Ledger.QueueSize,
		config.Duration(cfg.Ledger.Timeout, 200*time.Millisecond))
	cache := respcache.New(rdb, config.Duration(cfg.Acquisition.CacheTTL, respcache.DefaultTTL))
	store := history.NewStore(db, cache, l, logger)

	acq := acquisition.New(
		&keyResolver{repo: repository.NewDeploymentRepository(db)},
		store, cache, dispatcher, signer, logger,
		acquisition.Options{
			CacheTimeout:   config.Duration(cfg.Acquisition.CacheTimeout, acquisition.DefaultCacheTimeout),
			HistoryTimeout: config.Duration(cfg.Acquisition.HistoryTimeout, acquisition.DefaultHistoryTimeout),
		})

	return &CoreEngine{
		Ledger:      l,
		Dispatcher:  dispatcher,
		Cache:       cache,
		History:     store,
		Acquisition: acq,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Start 启动核心引擎; 引擎只能启动一次, Stop 之后需重新创建
func (e *CoreEngine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.logger.Warn("核心引擎已在运行中")
		return
	}
	if e.stopped {
		e.logger.Warn("核心引擎已停止, 不能再次启动")
		return
	}

	e.running = true
	e.logger.Info("CoreEngine starting...")

	e.Dispatcher.Start()
	go e.drainErrors()
}

// Stop 停止核心引擎, 等待已入队的指标写入完成
func (e *CoreEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}

	e.logger.Info("正在停止核心引擎...")
	e.Dispatcher.Stop()
	<-e.done
	e.running = false
	e.stopped = true
	e.logger.Info("核心引擎已停止")
}

// drainErrors 记录异步指标写入的失败, 指标丢失不影响请求
func (e *CoreEngine) drainErrors() {
	defer close(e.done)
	for err := range e.Dispatcher.Errors() {
		e.logger.Warn("指标写入失败", zap.Error(err))
	}
}
