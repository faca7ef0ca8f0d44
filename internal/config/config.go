package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	AI        AIConfig        `mapstructure:"ai"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig 本地 SQLite 数据库：快照缓存、离线队列、班级码设置
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RemoteConfig 远端快照存储，type 可选 kv / minio / oss
type RemoteConfig struct {
	Type           string `mapstructure:"type"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`

	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`

	OSSEndpoint  string `mapstructure:"oss_endpoint"`
	OSSAccessKey string `mapstructure:"oss_access_key"`
	OSSSecretKey string `mapstructure:"oss_secret_key"`
	OSSBucket    string `mapstructure:"oss_bucket"`
}

// Timeout 远端调用的有界超时，悬挂点只允许出现在网络调用上
func (c RemoteConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SyncConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

func (c SyncConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

type AIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type RedisConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Host     string
	Port     int
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("REFLECT_SYNC")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.path", "DATABASE_PATH")

	// Remote
	viper.BindEnv("remote.type", "REMOTE_TYPE")
	viper.BindEnv("remote.base_url", "REMOTE_BASE_URL")
	viper.BindEnv("remote.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("remote.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("remote.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("remote.minio_bucket", "MINIO_BUCKET")
	viper.BindEnv("remote.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("remote.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("remote.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("remote.oss_bucket", "OSS_BUCKET")

	// Sync
	viper.BindEnv("sync.interval_seconds", "SYNC_INTERVAL_SECONDS")

	// AI
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")

	// Redis
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/reflection_sync.db"
	}

	switch cfg.Remote.Type {
	case "", "kv":
		cfg.Remote.Type = "kv"
		if cfg.Remote.BaseURL == "" {
			return nil, fmt.Errorf("remote.base_url is required when remote.type is kv")
		}
	case "minio", "oss":
	default:
		return nil, fmt.Errorf("unknown remote.type %q, expected kv / minio / oss", cfg.Remote.Type)
	}

	return &cfg, nil
}
