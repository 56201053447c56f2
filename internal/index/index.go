// Package index 定义指数采集器的公共契约：Index 接口、构造选项、错误类型与成分股记录
package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wyfcoding/datacollector/pkg/db"
)

var (
	// ErrNotFound 请求的指数、日线或成分股记录不存在
	ErrNotFound = errors.New("not found")
	// ErrAttributeNotFound 指数记录上没有该字段
	ErrAttributeNotFound = errors.New("attribute not found")
	// ErrValidation 参数格式错误
	ErrValidation = errors.New("validation error")
)

// Index 下游数据框架消费的指数接口
type Index interface {
	// Name 指数名称，用于 instruments 文件名
	Name() string
	// BenchStartDate 基准起始日
	BenchStartDate(ctx context.Context) (time.Time, error)
	// CalendarList 交易日历
	CalendarList(ctx context.Context) ([]time.Time, error)
	// NewCompanies 成分股历史
	NewCompanies(ctx context.Context) ([]Constituent, error)
}

// Options 指数构造选项
type Options struct {
	// qlib 数据目录
	QlibDir string
	// 频率，目前仅支持 day
	Freq string
	// 每次读取的最大尝试次数
	RequestRetry int
	// 重试间隔
	RetrySleep time.Duration
	// instruments 文件中 symbol 的前缀
	InstPrefix string
}

// DefaultOptions 默认选项
func DefaultOptions() Options {
	return Options{
		Freq:         "day",
		RequestRetry: 5,
		RetrySleep:   3 * time.Second,
	}
}

// Validate 校验选项
func (o Options) Validate() error {
	if o.Freq != "day" {
		return fmt.Errorf("%w: unsupported freq %q", ErrValidation, o.Freq)
	}
	if o.RequestRetry < 1 {
		return fmt.Errorf("%w: request_retry must be >= 1, got %d", ErrValidation, o.RequestRetry)
	}
	if o.RetrySleep < 0 {
		return fmt.Errorf("%w: retry_sleep must be >= 0, got %s", ErrValidation, o.RetrySleep)
	}
	return nil
}

// RetryPolicy 数据库读取的重试策略
func (o Options) RetryPolicy() db.RetryPolicy {
	return db.RetryPolicy{Attempts: o.RequestRetry, Sleep: o.RetrySleep}
}

// Dir 返回 qlib 目录下的子目录，展开 ~
func (o Options) Dir(sub string) (string, error) {
	root := o.QlibDir
	if root == "" {
		return "", fmt.Errorf("%w: qlib_dir is empty", ErrValidation)
	}
	if root == "~" || strings.HasPrefix(root, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		root = filepath.Join(home, strings.TrimPrefix(root, "~"))
	}
	return filepath.Join(root, sub), nil
}

// FileStem 由指数名称生成文件名：小写，非字母数字替换为下划线
func FileStem(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
