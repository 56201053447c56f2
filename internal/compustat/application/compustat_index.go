// Package application Compustat 指数的应用服务：带缓存的惰性查询
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/wyfcoding/datacollector/internal/compustat/domain"
	"github.com/wyfcoding/datacollector/internal/index"
	"github.com/wyfcoding/datacollector/pkg/cache"
	"github.com/wyfcoding/datacollector/pkg/logger"
	"github.com/wyfcoding/datacollector/pkg/metrics"
)

// 缓存用途，对应 key 的最后一段
const (
	purposeRecord       = "idx_index"
	purposeFirstRow     = "first_row"
	purposeCalendar     = "calendar_list"
	purposeConstituents = "new_companies"
	purposeDailyPrices  = "daily_prices"
)

// CompustatIndex 由 gvkeyx 标识的 Compustat 指数。
// 所有查询结果写入共享缓存，同一 key 只查询一次数据库
type CompustatIndex struct {
	record  *domain.IndexRecord
	opts    index.Options
	repo    domain.IndexRepository
	cache   cache.Store
	metrics *metrics.Metrics
}

var _ index.Index = (*CompustatIndex)(nil)

// NewCompustatIndex 解析指数记录，gvkeyx 不存在时返回 index.ErrNotFound
func NewCompustatIndex(ctx context.Context, gvkeyx string, repo domain.IndexRepository, store cache.Store, opts index.Options, m *metrics.Metrics) (*CompustatIndex, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	c := &CompustatIndex{opts: opts, repo: repo, cache: store, metrics: m}

	key := cache.Flag(domain.IndexTable, gvkeyx, purposeRecord)
	rec, err := cache.Remember(ctx, store, key, c.observe(purposeRecord), func(ctx context.Context) (*domain.IndexRecord, error) {
		defer logger.LogDuration(ctx, "Pulling IdxIndex from DB", "gvkeyx", gvkeyx)()
		rec, err := repo.FindIndex(ctx, gvkeyx)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: no %s row with gvkeyx=%s", index.ErrNotFound, domain.IndexTable, gvkeyx)
		}
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	c.record = rec
	return c, nil
}

// Name 指数名称 (conm)
func (c *CompustatIndex) Name() string { return c.record.Conm }

// Code 指数代码 (gvkeyx)
func (c *CompustatIndex) Code() string { return c.record.Gvkeyx }

// Record 指数记录，调用方不得修改
func (c *CompustatIndex) Record() *domain.IndexRecord { return c.record }

// Attribute 按列名读取指数记录的原始字段
func (c *CompustatIndex) Attribute(column string) (string, error) {
	v, ok := c.record.Field(column)
	if !ok {
		return "", fmt.Errorf("%w: %s has no column %q", index.ErrAttributeNotFound, domain.IndexTable, column)
	}
	return v, nil
}

// BenchStartDate 最早一条日线的日期
func (c *CompustatIndex) BenchStartDate(ctx context.Context) (time.Time, error) {
	code := c.Code()
	key := cache.Flag(domain.DailyTable, code, purposeFirstRow)
	row, err := cache.Remember(ctx, c.cache, key, c.observe(purposeFirstRow), func(ctx context.Context) (*domain.DailyObservation, error) {
		defer logger.LogDuration(ctx, "Pulling first IdxDaily from DB", "gvkeyx", code)()
		row, err := c.repo.FirstDaily(ctx, code)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, fmt.Errorf("%w: no %s row with gvkeyx=%s", index.ErrNotFound, domain.DailyTable, code)
		}
		return row, nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return row.Datadate, nil
}

// CalendarList 指数所有日线的日期，保持加载时的顺序
func (c *CompustatIndex) CalendarList(ctx context.Context) ([]time.Time, error) {
	code := c.Code()
	key := cache.Flag(domain.IndexTable, code, purposeCalendar)
	return cache.Remember(ctx, c.cache, key, c.observe(purposeCalendar), func(ctx context.Context) ([]time.Time, error) {
		defer logger.LogDuration(ctx, "Pulling calendar list from DB", "gvkeyx", code)()
		dates, err := c.repo.CalendarDates(ctx, code)
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, fmt.Errorf("%w: no %s dates with gvkeyx=%s", index.ErrNotFound, domain.DailyTable, code)
		}
		return dates, nil
	})
}

// NewCompanies 成分股变更历史，每条记录一行
func (c *CompustatIndex) NewCompanies(ctx context.Context) ([]index.Constituent, error) {
	code := c.Code()
	key := cache.Flag(domain.IndexTable, code, purposeConstituents)
	return cache.Remember(ctx, c.cache, key, c.observe(purposeConstituents), func(ctx context.Context) ([]index.Constituent, error) {
		defer logger.LogDuration(ctx, "Pulling IdxcstHis from DB", "gvkeyx", code)()
		rows, err := c.repo.Constituents(ctx, code)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: no %s rows with gvkeyx=%s", index.ErrNotFound, domain.ConstituentTable, code)
		}
		return rows, nil
	})
}

// NewCompaniesTable 成分股历史的 Arrow 视图，调用方负责 Release
func (c *CompustatIndex) NewCompaniesTable(ctx context.Context, mem memory.Allocator) (arrow.RecordBatch, error) {
	rows, err := c.NewCompanies(ctx)
	if err != nil {
		return nil, err
	}
	return index.ConstituentBatch(mem, rows), nil
}

// DailyPrices 全部日线，按日期升序
func (c *CompustatIndex) DailyPrices(ctx context.Context) ([]domain.DailyObservation, error) {
	code := c.Code()
	key := cache.Flag(domain.DailyTable, code, purposeDailyPrices)
	return cache.Remember(ctx, c.cache, key, c.observe(purposeDailyPrices), func(ctx context.Context) ([]domain.DailyObservation, error) {
		defer logger.LogDuration(ctx, "Pulling IdxDaily from DB", "gvkeyx", code)()
		rows, err := c.repo.DailyPrices(ctx, code)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%w: no %s rows with gvkeyx=%s", index.ErrNotFound, domain.DailyTable, code)
		}
		return rows, nil
	})
}

func (c *CompustatIndex) observe(purpose string) func(bool) {
	return func(hit bool) { c.metrics.ObserveCache(purpose, hit) }
}
