package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ota-server/internal/adapter/notification"
	"ota-server/internal/adapter/storage"
	"ota-server/internal/api/router"
	"ota-server/internal/core"
	"ota-server/internal/pkg/config"
	"ota-server/internal/pkg/database"
	"ota-server/internal/pkg/jwt"
	"ota-server/internal/pkg/logger"
	"ota-server/internal/pkg/redisx"
	"ota-server/internal/scheduler"
	"ota-server/internal/service"
)

var (
	configFile = flag.String("config", "", "配置文件路径 (例如: -config=configs/config.yaml)")
	version    = flag.Bool("version", false, "显示版本信息")
)

const (
	appVersion = "1.0.0"
	appName    = "ota-server"
)

func main() {
	// 解析命令行参数
	flag.Parse()

	// 显示版本信息
	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	// init config logger
	var cfg *config.Config
	{
		// 优先级: 命令行参数 > 环境变量 > 默认路径
		configPath := getConfigPath()

		// 加载配置
		c, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("加载配置失败: %v\n", err)
			fmt.Println("\n使用方式:")
			fmt.Println("  1. 命令行参数指定:")
			fmt.Println("     ./ota-server -config=configs/config.yaml")
			fmt.Println("  2. 环境变量指定:")
			fmt.Println("     export CONFIG_FILE=configs/config.yaml")
			fmt.Println("     ./ota-server")
			fmt.Println("  3. 使用默认配置:")
			fmt.Println("     ./ota-server  (将使用 configs/config.yaml)")
			os.Exit(1)
		}
		cfg = c

		// 初始化日志
		if err := logger.Init(&cfg.Log); err != nil {
			fmt.Printf("初始化日志失败: %v\n", err)
			os.Exit(1)
		}
		logger.Info(fmt.Sprintf("Load config file: %s of %s", configPath, getConfigSource()))

		defer func() {
			_ = logger.Close()
		}()
	}

	logger.Info(fmt.Sprintf("服务 %s 启动中...", appName), zap.String("version", appVersion))

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer func() {
		_ = database.Close(db)
	}()
	logger.Info(fmt.Sprintf("数据库连接成功 %s:%v", cfg.Database.Host, cfg.Database.Port), zap.String("database", cfg.Database.Database))

	// 初始化Redis(响应缓存与指标计数)
	rdb, err := redisx.Open(context.Background(), &cfg.Redis)
	if err != nil {
		logger.Fatal("初始化Redis失败", zap.Error(err))
	}
	defer func() {
		_ = rdb.Close()
	}()
	logger.Info("Redis连接成功", zap.String("addr", cfg.Redis.Addr))

	signer := storage.NewSigner(
		cfg.Storage.BaseURL,
		cfg.Storage.SigningKey,
		config.Duration(cfg.Storage.UploadTTL, storage.DefaultUploadTTL),
		config.Duration(cfg.Storage.DownloadTTL, storage.DefaultDownloadTTL),
	)
	notifier := notification.New(cfg.Notification.Enabled, cfg.Notification.Provider, cfg.Notification.LarkWebhook, logger.Log)
	tokens := jwt.NewManager(cfg.Auth.JWT)

	// 初始化并启动Core引擎
	coreEngine := core.NewCoreEngine(cfg, db, rdb, signer, logger.Log)
	coreEngine.Start()
	logger.Info("Core引擎启动成功")

	// 初始化并启动定时任务调度器
	taskScheduler := scheduler.NewScheduler(service.NewMetricsService(db, coreEngine.Ledger, logger.Log), logger.Log)
	if err := taskScheduler.Start(&cfg.Scheduler); err != nil {
		logger.Warn("定时任务调度器启动失败", zap.Error(err))
	}

	// 设置路由
	r := router.Setup(cfg, router.Deps{
		DB:       db,
		Redis:    rdb,
		Engine:   coreEngine,
		Signer:   signer,
		Notifier: notifier,
		Tokens:   tokens,
		Logger:   logger.Log,
	})

	// 创建HTTP服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		logger.Info(fmt.Sprintf("%s 服务启动成功", cfg.Server.Name),
			zap.String("address", addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务正在关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 先停止接收请求, 再排空指标队列
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭定时任务调度器
	taskScheduler.Stop()

	// 关闭Core引擎
	coreEngine.Stop()
	logger.Info("Core引擎已停止")

	logger.Info("服务已关闭")
}

// getConfigPath 获取配置文件路径
// 优先级: 命令行参数 > 环境变量 > 默认路径
func getConfigPath() string {
	// 1. 命令行参数
	if *configFile != "" {
		return *configFile
	}

	// 2. 环境变量
	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		return envConfig
	}

	// 3. 默认路径
	return "configs/config.yaml"
}

// getConfigSource 获取配置来源说明
func getConfigSource() string {
	if *configFile != "" {
		return "命令行参数"
	}
	if os.Getenv("CONFIG_FILE") != "" {
		return "环境变量"
	}
	return "默认配置"
}
