// Package db 提供 GORM 初始化、连接池配置、只读会话、重试与熔断
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wyfcoding/datacollector/pkg/metrics"
	"gorm.io/driver/clickhouse"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config 数据库配置
type Config struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    int
	LogEnabled         bool
	SlowQueryThreshold int
}

// DB 数据库实例包装
type DB struct {
	*gorm.DB
	driver  string
	retry   RetryPolicy
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

// Dialector 根据驱动类型选择方言
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "clickhouse":
		return clickhouse.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Init 初始化数据库连接
func Init(ctx context.Context, cfg Config, breaker BreakerConfig, m *metrics.Metrics) (*DB, error) {
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(cfg.LogEnabled, time.Duration(cfg.SlowQueryThreshold)*time.Millisecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return Wrap(gdb, cfg.Driver, breaker, m), nil
}

// Wrap 包装已有的 gorm 连接
func Wrap(gdb *gorm.DB, driver string, breaker BreakerConfig, m *metrics.Metrics) *DB {
	return &DB{
		DB:      gdb,
		driver:  driver,
		retry:   RetryPolicy{Attempts: 1},
		breaker: newBreaker(breaker),
		metrics: m,
	}
}

// WithRetry 返回使用指定重试策略的副本，底层连接共享
func (d *DB) WithRetry(p RetryPolicy) *DB {
	c := *d
	c.retry = p
	return &c
}

// Close 关闭数据库连接
func (d *DB) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ReadSession 在作用域会话中执行一次只读查询。
// 每次尝试都会新建会话，fn 返回后会话关闭（出错时回滚）。
// gorm.ErrRecordNotFound 不重试。
func (d *DB) ReadSession(ctx context.Context, query string, fn func(tx *gorm.DB) error) error {
	return Retry(ctx, d.retry, func(err error, next time.Duration) {
		d.metrics.ObserveRetry(query)
		warnRetry(ctx, query, err, next)
	}, func() error {
		start := time.Now()
		err := d.guard(func() error { return d.session(ctx, fn) })
		d.metrics.ObserveQuery(query, time.Since(start).Seconds(), ignoreNotFound(err))
		return err
	})
}

func (d *DB) session(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if d.driver == "clickhouse" {
		return fn(d.DB.WithContext(ctx))
	}
	return d.DB.WithContext(ctx).Transaction(fn, &sql.TxOptions{ReadOnly: true})
}

func (d *DB) guard(fn func() error) error {
	if d.breaker == nil {
		return fn()
	}
	_, err := d.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
