package db

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/wyfcoding/datacollector/pkg/logger"
	"gorm.io/gorm"
)

// BreakerConfig 熔断配置
type BreakerConfig struct {
	Enabled bool
	// 半开状态允许通过的请求数
	MaxRequests uint32
	// 关闭状态下计数清零周期
	Interval time.Duration
	// 打开状态持续时间
	Timeout time.Duration
	// 连续失败多少次后熔断
	ConsecutiveFailures uint32
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "database",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// 记录不存在属于正常结果，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, gorm.ErrRecordNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}
