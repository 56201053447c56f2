// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/wyfcoding/datacollector/pkg/logger"
)

// EnvPrefix 环境变量前缀，例如 COLLECTOR_DATABASE_DSN
const EnvPrefix = "COLLECTOR"

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name" validate:"required"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment" validate:"oneof=dev staging prod"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// 查询结果缓存配置
	Cache CacheConfig `mapstructure:"cache"`
	// 采集器配置
	Collector CollectorConfig `mapstructure:"collector"`
	// 熔断配置
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// HTTP 限流配置
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动：postgres, mysql, clickhouse
	Driver string `mapstructure:"driver" validate:"oneof=postgres mysql clickhouse"`
	// 数据源名称
	DSN string `mapstructure:"dsn" validate:"required"`
	// 最大连接数
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// 最大空闲连接数
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// 连接最大生命周期（秒）
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"`
	// 是否启用 SQL 日志
	LogEnabled bool `mapstructure:"log_enabled"`
	// 慢查询阈值（毫秒）
	SlowQueryThreshold int `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// CacheConfig 查询结果缓存配置
type CacheConfig struct {
	// 后端：memory, bounded, redis, tiered
	Backend string `mapstructure:"backend" validate:"oneof=memory bounded redis tiered"`
	// bounded 模式下的最大条目数
	MaxEntries int64 `mapstructure:"max_entries"`
	// Redis key 前缀
	KeyPrefix string `mapstructure:"key_prefix"`
	// Redis 过期时间（秒），0 表示不过期
	TTL int `mapstructure:"ttl"`
}

// CollectorConfig 采集器配置
type CollectorConfig struct {
	// qlib 数据目录
	QlibDir string `mapstructure:"qlib_dir"`
	// 频率，目前仅支持 day
	Freq string `mapstructure:"freq" validate:"oneof=day"`
	// 每次读取的最大尝试次数
	RequestRetry int `mapstructure:"request_retry" validate:"min=1"`
	// 重试间隔（秒）
	RetrySleep int `mapstructure:"retry_sleep" validate:"min=0"`
	// instruments 文件中 symbol 的前缀
	InstPrefix string `mapstructure:"inst_prefix"`
	// PanoIndex 使用哪个指数的交易日历
	CalendarIndex string `mapstructure:"calendar_index"`
	// PanoIndex 证券全集限定的交易所代码，为空表示全部
	PanoExchanges []string `mapstructure:"pano_exchanges"`
}

// CircuitBreakerConfig 熔断配置
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 半开状态允许通过的请求数
	MaxRequests uint32 `mapstructure:"max_requests"`
	// 关闭状态下计数清零周期（秒）
	Interval int `mapstructure:"interval"`
	// 打开状态持续时间（秒）
	Timeout int `mapstructure:"timeout"`
	// 连续失败多少次后熔断
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	// 最大重试次数
	MaxRetries int `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 按客户端 IP 限流，依赖 Redis
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 每秒请求数
	QPS   int `mapstructure:"qps" validate:"min=0"`
	Burst int `mapstructure:"burst" validate:"min=0"`
}

var validate = validator.New()

// Load 从 TOML 文件加载配置，文件不存在时仅使用默认值与环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("failed to read config file: %w", err)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Topic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka topic %q configured without brokers", c.Kafka.Topic)
	}
	if c.RateLimit.Enabled && c.RateLimit.QPS == 0 {
		return errors.New("rate_limit enabled with qps = 0")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "datacollector")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 4096)
	v.SetDefault("cache.key_prefix", "datacollector:")
	v.SetDefault("cache.ttl", 0)

	v.SetDefault("collector.qlib_dir", "~/.qlib/qlib_data/compustat")
	v.SetDefault("collector.freq", "day")
	v.SetDefault("collector.request_retry", 5)
	v.SetDefault("collector.retry_sleep", 3)
	v.SetDefault("collector.inst_prefix", "")
	v.SetDefault("collector.calendar_index", "000003")
	v.SetDefault("collector.pano_exchanges", []string{})

	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", 60)
	v.SetDefault("circuit_breaker.timeout", 30)
	v.SetDefault("circuit_breaker.consecutive_failures", 5)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.file_path", "logs/collector.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.qps", 20)
	v.SetDefault("rate_limit.burst", 40)
}
