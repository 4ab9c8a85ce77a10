package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ota-server/internal/adapter/notification"
	"ota-server/internal/api/handler"
	"ota-server/internal/api/middleware"
	"ota-server/internal/core"
	"ota-server/internal/dto"
	"ota-server/internal/pkg/config"
	"ota-server/internal/pkg/jwt"
	"ota-server/internal/service"
)

// Deps 路由依赖, 由 main 构建并注入
type Deps struct {
	DB       *gorm.DB
	Redis    redis.Cmdable
	Engine   *core.CoreEngine
	Signer   service.UploadSigner
	Notifier notification.Notifier
	Tokens   *jwt.Manager
	Logger   *zap.Logger
}

// Setup 设置路由
func Setup(cfg *config.Config, deps Deps) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := dto.RegisterValidators(); err != nil {
		deps.Logger.Error("注册自定义校验器失败", zap.Error(err))
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// 健康检查
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis)
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 初始化Service
	appService := service.NewAppService(deps.DB)
	deploymentService := service.NewDeploymentService(deps.DB, deps.Engine.History, deps.Notifier, deps.Logger)
	releaseService := service.NewReleaseService(deps.DB, deps.Engine.History, deps.Signer, deps.Notifier, deps.Logger)
	metricsService := service.NewMetricsService(deps.DB, deps.Engine.Ledger, deps.Logger)

	// 初始化Handler
	acquisitionHandler := handler.NewAcquisitionHandler(deps.Engine.Acquisition)
	appHandler := handler.NewAppHandler(appService)
	deploymentHandler := handler.NewDeploymentHandler(deploymentService)
	releaseHandler := handler.NewReleaseHandler(releaseService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	// 客户端SDK(无需token)
	public := r.Group("/v0.1/public/codepush")
	{
		public.GET("/update_check", acquisitionHandler.UpdateCheck)
		public.POST("/report_status/deploy", acquisitionHandler.ReportDeploy)
		public.POST("/report_status/download", acquisitionHandler.ReportDownload)
		public.POST("/report_status/uninstall", acquisitionHandler.ReportUninstall)
	}

	// API v1
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.Tokens))
	{
		// 应用管理
		v1.POST("/apps", appHandler.Create) // 创建应用(含默认部署)
		v1.GET("/apps", appHandler.List)    // 应用列表

		// 部署管理
		groupDeployments := v1.Group("/apps/:app/deployments")
		{
			groupDeployments.GET("", deploymentHandler.List)
			groupDeployments.POST("", deploymentHandler.Create)
			groupDeployments.POST("/:deployment/rotate_key", deploymentHandler.RotateKey) // 更换Key, 旧Key立即失效

			// 发布管理
			groupDeployments.GET("/:deployment/history", releaseHandler.History)
			groupDeployments.DELETE("/:deployment/history", releaseHandler.Clear) // 清空历史及指标, 不可恢复
			groupDeployments.POST("/:deployment/upload_url", releaseHandler.UploadURL)
			groupDeployments.POST("/:deployment/release", releaseHandler.Create)
			groupDeployments.PATCH("/:deployment/release", releaseHandler.Update)
			groupDeployments.POST("/:deployment/releases/:label/disable", releaseHandler.Disable)
			groupDeployments.POST("/:deployment/promote/:dst", releaseHandler.Promote) // :deployment 为源部署
			groupDeployments.POST("/:deployment/rollback", releaseHandler.Rollback)

			// 指标
			groupDeployments.GET("/:deployment/metrics", metricsHandler.Get)
			groupDeployments.GET("/:deployment/metrics/history", metricsHandler.History)
		}
	}

	return r
}
