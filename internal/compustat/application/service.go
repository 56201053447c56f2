package application

import (
	"context"

	"github.com/wyfcoding/datacollector/internal/compustat/domain"
	"github.com/wyfcoding/datacollector/internal/index"
	"github.com/wyfcoding/datacollector/pkg/cache"
	"github.com/wyfcoding/datacollector/pkg/metrics"
)

// IndexService 按 gvkeyx 打开 Compustat 指数，共享仓储与缓存
type IndexService struct {
	repo    domain.IndexRepository
	cache   cache.Store
	opts    index.Options
	metrics *metrics.Metrics
}

// NewIndexService 创建指数服务
func NewIndexService(repo domain.IndexRepository, store cache.Store, opts index.Options, m *metrics.Metrics) *IndexService {
	return &IndexService{repo: repo, cache: store, opts: opts, metrics: m}
}

// Options 构造指数时使用的选项
func (s *IndexService) Options() index.Options { return s.opts }

// Open 解析指数记录；记录已缓存时不访问数据库
func (s *IndexService) Open(ctx context.Context, gvkeyx string) (*CompustatIndex, error) {
	return NewCompustatIndex(ctx, gvkeyx, s.repo, s.cache, s.opts, s.metrics)
}
