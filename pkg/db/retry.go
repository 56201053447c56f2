package db

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/datacollector/pkg/logger"
	"gorm.io/gorm"
)

// RetryPolicy 读取重试策略
type RetryPolicy struct {
	// 总尝试次数，小于 1 时按 1 处理
	Attempts int
	// 两次尝试之间的固定间隔
	Sleep time.Duration
}

// Retry 执行 op，失败后按固定间隔重试，直到成功、次数用尽或遇到不可重试错误。
// onRetry 在每次重试前调用，可以为 nil。
func Retry(ctx context.Context, p RetryPolicy, onRetry func(err error, next time.Duration), op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Sleep)),
		backoff.WithMaxTries(uint(attempts)),
	}
	if onRetry != nil {
		opts = append(opts, backoff.WithNotify(onRetry))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err != nil && IsPermanent(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, opts...)
	return err
}

// IsPermanent 判断错误是否不应重试
func IsPermanent(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gobreaker.ErrOpenState)
}

func warnRetry(ctx context.Context, query string, err error, next time.Duration) {
	logger.Warn(ctx, "database read failed, retrying", "query", query, "error", err, "next", next)
}
