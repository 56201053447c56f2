package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	compustatapp "github.com/wyfcoding/datacollector/internal/compustat/application"
	compustatdb "github.com/wyfcoding/datacollector/internal/compustat/infrastructure/persistence/database"
	"github.com/wyfcoding/datacollector/internal/index"
	panoapp "github.com/wyfcoding/datacollector/internal/panoramic/application"
	"github.com/wyfcoding/datacollector/internal/panoramic/domain"
	panodb "github.com/wyfcoding/datacollector/internal/panoramic/infrastructure/persistence/database"
	"github.com/wyfcoding/datacollector/pkg/cache"
	"github.com/wyfcoding/datacollector/pkg/config"
	"github.com/wyfcoding/datacollector/pkg/db"
	"github.com/wyfcoding/datacollector/pkg/logger"
	"github.com/wyfcoding/datacollector/pkg/metrics"
	"github.com/wyfcoding/datacollector/pkg/mq"
)

// app 进程内共享的基础设施
type app struct {
	cfg      *config.Config
	opts     index.Options
	db       *db.DB
	redis    *redis.Client
	store    cache.Store
	metrics  *metrics.Metrics
	producer *mq.Producer
	closers  []func()
}

func newApp(ctx context.Context, c *config.Config) (*app, error) {
	a := &app{cfg: c, metrics: metrics.New(c.ServiceName)}
	a.opts = index.Options{
		QlibDir:      c.Collector.QlibDir,
		Freq:         c.Collector.Freq,
		RequestRetry: c.Collector.RequestRetry,
		RetrySleep:   retrySleepDuration(c),
		InstPrefix:   c.Collector.InstPrefix,
	}
	if err := a.opts.Validate(); err != nil {
		return nil, err
	}

	conn, err := db.Init(ctx, db.Config{
		Driver:             c.Database.Driver,
		DSN:                c.Database.DSN,
		MaxOpenConns:       c.Database.MaxOpenConns,
		MaxIdleConns:       c.Database.MaxIdleConns,
		ConnMaxLifetime:    c.Database.ConnMaxLifetime,
		LogEnabled:         c.Database.LogEnabled,
		SlowQueryThreshold: c.Database.SlowQueryThreshold,
	}, db.BreakerConfig{
		Enabled:             c.CircuitBreaker.Enabled,
		MaxRequests:         c.CircuitBreaker.MaxRequests,
		Interval:            time.Duration(c.CircuitBreaker.Interval) * time.Second,
		Timeout:             time.Duration(c.CircuitBreaker.Timeout) * time.Second,
		ConsecutiveFailures: c.CircuitBreaker.ConsecutiveFailures,
	}, a.metrics)
	if err != nil {
		return nil, err
	}
	a.db = conn.WithRetry(a.opts.RetryPolicy())
	a.closers = append(a.closers, func() { _ = conn.Close() })

	if err := a.initCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != "" {
		a.producer = mq.NewProducer(mq.KafkaConfig{
			Brokers:      c.Kafka.Brokers,
			Topic:        c.Kafka.Topic,
			MaxRetries:   c.Kafka.MaxRetries,
			RetryBackoff: c.Kafka.RetryBackoff,
		})
		a.closers = append(a.closers, func() { _ = a.producer.Close() })
	}

	logger.Info(ctx, "collector initialized",
		"driver", c.Database.Driver,
		"cache", c.Cache.Backend,
		"request_retry", a.opts.RequestRetry,
		"retry_sleep", a.opts.RetrySleep,
	)
	return a, nil
}

func (a *app) needsRedis() bool {
	switch a.cfg.Cache.Backend {
	case "redis", "tiered":
		return true
	}
	return a.cfg.RateLimit.Enabled
}

func (a *app) initCache(ctx context.Context) error {
	if a.needsRedis() {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Host:         a.cfg.Redis.Host,
			Port:         a.cfg.Redis.Port,
			Password:     a.cfg.Redis.Password,
			DB:           a.cfg.Redis.DB,
			MaxPoolSize:  a.cfg.Redis.MaxPoolSize,
			ReadTimeout:  a.cfg.Redis.ReadTimeout,
			WriteTimeout: a.cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return err
		}
		a.redis = client
		a.closers = append(a.closers, func() { _ = client.Close() })
	}

	ttl := time.Duration(a.cfg.Cache.TTL) * time.Second
	switch a.cfg.Cache.Backend {
	case "memory":
		a.store = cache.NewMemoryStore()
	case "bounded":
		bounded, err := cache.NewBoundedStore(a.cfg.Cache.MaxEntries)
		if err != nil {
			return err
		}
		a.store = bounded
		a.closers = append(a.closers, bounded.Close)
	case "redis":
		a.store = cache.NewRedisStore(a.redis, a.cfg.Cache.KeyPrefix, ttl)
	case "tiered":
		a.store = cache.NewTieredStore(cache.NewMemoryStore(), cache.NewRedisStore(a.redis, a.cfg.Cache.KeyPrefix, ttl))
	default:
		return fmt.Errorf("unsupported cache backend: %s", a.cfg.Cache.Backend)
	}
	return nil
}

func (a *app) compustatService() *compustatapp.IndexService {
	return compustatapp.NewIndexService(compustatdb.NewIndexRepository(a.db), a.store, a.opts, a.metrics)
}

func (a *app) panoIndex(ctx context.Context, name string, filter domain.Filter) (*panoapp.PanoIndex, error) {
	calendar, err := a.compustatService().Open(ctx, a.cfg.Collector.CalendarIndex)
	if err != nil {
		return nil, fmt.Errorf("open calendar index %s: %w", a.cfg.Collector.CalendarIndex, err)
	}
	return panoapp.NewPanoIndex(name, filter, a.opts, panoapp.Deps{
		Attributes: panodb.NewAttributeSource(a.db),
		Universe:   panodb.NewSecurityRepository(a.db, a.cfg.Collector.PanoExchanges...),
		Calendar:   calendar,
		Cache:      a.store,
		Metrics:    a.metrics,
	})
}

// Close 逆序释放资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildFilter 以 base 为起点，依次 AND 每个 ands，再依次 OR 每个 ors
func buildFilter(base string, ands, ors []string) (domain.Filter, error) {
	root, err := domain.ParseAttributeFilter(base)
	if err != nil {
		return nil, err
	}
	var f domain.Filter = root
	for _, expr := range ands {
		leaf, err := domain.ParseAttributeFilter(expr)
		if err != nil {
			return nil, err
		}
		f = domain.And(f, leaf)
	}
	for _, expr := range ors {
		leaf, err := domain.ParseAttributeFilter(expr)
		if err != nil {
			return nil, err
		}
		f = domain.Or(f, leaf)
	}
	return f, nil
}

func joinActions(actions []string) string {
	return strings.Join(actions, "|")
}
