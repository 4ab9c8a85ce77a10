package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Log          LogConfig          `mapstructure:"log"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Acquisition  AcquisitionConfig  `mapstructure:"acquisition"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Notification NotificationConfig `mapstructure:"notification"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
	LogLevel        string `mapstructure:"log_level"`         // SQL日志级别: silent/error/warn/info
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// RedisConfig 缓存与计数存储配置
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	AccessTokenExpire int    `mapstructure:"access_token_expire"` // 秒
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

// StorageConfig 制品存储配置
type StorageConfig struct {
	BaseURL     string `mapstructure:"base_url"`     // 下载/上传地址前缀
	SigningKey  string `mapstructure:"signing_key"`  // URL签名密钥
	UploadTTL   string `mapstructure:"upload_ttl"`   // 上传链接有效期
	DownloadTTL string `mapstructure:"download_ttl"` // 下载链接有效期
}

// AcquisitionConfig 更新检查配置
type AcquisitionConfig struct {
	CacheTTL       string `mapstructure:"cache_ttl"`       // 响应缓存有效期
	CacheTimeout   string `mapstructure:"cache_timeout"`   // 缓存读写超时
	HistoryTimeout string `mapstructure:"history_timeout"` // 发布历史查询超时
}

// LedgerConfig 指标计数配置
type LedgerConfig struct {
	Workers   int    `mapstructure:"workers"`    // 异步写入协程数
	QueueSize int    `mapstructure:"queue_size"` // 队列长度, 满则丢弃
	Timeout   string `mapstructure:"timeout"`    // 单次写入超时
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"enabled"`      // 是否启用
	Provider    string `mapstructure:"provider"`     // 通知渠道: log/lark
	LarkWebhook string `mapstructure:"lark_webhook"` // Lark Webhook
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	MetricsSnapshotCron string `mapstructure:"metrics_snapshot_cron"` // 秒 分 时 日 月 周
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	// 读取环境变量
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "ota-server")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 3600)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("auth.jwt.access_token_expire", 7200)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("storage.upload_ttl", "15m")
	v.SetDefault("storage.download_ttl", "1h")
	v.SetDefault("acquisition.cache_ttl", "1h")
	v.SetDefault("acquisition.cache_timeout", "150ms")
	v.SetDefault("acquisition.history_timeout", "400ms")
	v.SetDefault("ledger.workers", 4)
	v.SetDefault("ledger.queue_size", 4096)
	v.SetDefault("ledger.timeout", "200ms")
	v.SetDefault("notification.provider", "log")
	v.SetDefault("scheduler.metrics_snapshot_cron", "0 */15 * * * *")
}

// GetDSN 获取数据库DSN
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Duration 解析时长配置, 为空或格式错误时返回默认值
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
