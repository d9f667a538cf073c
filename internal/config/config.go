package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	AI        AIConfig
	Kiosk     KioskConfig     `mapstructure:"kiosk"`
	Mail      MailConfig      `mapstructure:"mail"`
	Rollbar   RollbarConfig   `mapstructure:"rollbar"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool `mapstructure:"-"` // 仅迁移模式（迁移后退出）
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// AIConfig provider 为 gemini 或 openai（兼容 chat/completions 的服务）
type AIConfig struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig driver 为 mysql 或 memory（内存存储，仅用于本地调试）
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// KioskConfig 考试锁定模式策略
type KioskConfig struct {
	AppOrigin        string   `mapstructure:"app_origin"`
	AutoSubmitOnBlur bool     `mapstructure:"auto_submit_on_blur"`
	BlockedKeys      []string `mapstructure:"blocked_keys"`
	ReloadDelayMs    int      `mapstructure:"reload_delay_ms"`
	DraftTTLHours    int      `mapstructure:"draft_ttl_hours"`
	GraceMinutes     int      `mapstructure:"grace_minutes"`
}

type MailConfig struct {
	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromName       string `mapstructure:"from_name"`
	FromAddress    string `mapstructure:"from_address"`
	AppURL         string `mapstructure:"app_url"`
}

type RollbarConfig struct {
	Token       string `mapstructure:"token"`
	Environment string `mapstructure:"environment"`
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.driver", "mysql")
	viper.SetDefault("database.charset", "utf8mb4")
	viper.SetDefault("database.parsetime", true)
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local_path", "uploads")
	viper.SetDefault("storage.max_upload_mb", 200)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.model", "gemini-2.0-flash")
	viper.SetDefault("kiosk.app_origin", "http://localhost:3000")
	viper.SetDefault("kiosk.auto_submit_on_blur", true)
	viper.SetDefault("kiosk.blocked_keys", []string{"Escape", "Tab"})
	viper.SetDefault("kiosk.reload_delay_ms", 1000)
	viper.SetDefault("kiosk.draft_ttl_hours", 6)
	viper.SetDefault("kiosk.grace_minutes", 5)
	viper.SetDefault("mail.from_name", "QuizDesk")
	viper.SetDefault("mail.from_address", "no-reply@quizdesk.local")
	viper.SetDefault("rate_limit.max_requests", 6000)
	viper.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("QUIZDESK")
	viper.AutomaticEnv()
	setDefaults()

	// Database
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")
	viper.BindEnv("server.port", "PORT")

	// AI
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY", "GEMINI_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")

	// Storage / OSS
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Kiosk
	viper.BindEnv("kiosk.app_origin", "KIOSK_APP_ORIGIN")

	// Mail / Rollbar
	viper.BindEnv("mail.sendgrid_api_key", "SENDGRID_API_KEY")
	viper.BindEnv("mail.app_url", "APP_URL")
	viper.BindEnv("rollbar.token", "ROLLBAR_TOKEN")
	viper.BindEnv("rollbar.environment", "ROLLBAR_ENV")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// Missing 返回缺失的必要配置项（对应 /api/debug/env）
func (c *Config) Missing() []string {
	var missing []string
	check := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
		}
	}

	check("jwt.secret", c.JWT.Secret)
	check("ai.api_key", c.AI.APIKey)
	check("kiosk.app_origin", c.Kiosk.AppOrigin)

	if c.Database.Driver != "memory" {
		check("database.host", c.Database.Host)
		check("database.user", c.Database.User)
		check("database.dbname", c.Database.DBName)
	}
	if c.Redis.Enabled {
		check("redis.host", c.Redis.Host)
	}
	if c.AI.Provider == "openai" {
		check("ai.base_url", c.AI.BaseURL)
	}

	switch c.Storage.Type {
	case "minio":
		check("storage.minio_endpoint", c.Storage.MinioEndpoint)
		check("storage.minio_bucket", c.Storage.MinioBucket)
	case "oss":
		check("storage.oss_endpoint", c.Storage.OSSEndpoint)
		check("storage.oss_bucket", c.Storage.OSSBucket)
	}

	return missing
}
