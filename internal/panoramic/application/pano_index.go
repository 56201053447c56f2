// Package application 由过滤器表达式构建的指数
package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/wyfcoding/datacollector/internal/index"
	"github.com/wyfcoding/datacollector/internal/panoramic/domain"
	"github.com/wyfcoding/datacollector/pkg/cache"
	"github.com/wyfcoding/datacollector/pkg/logger"
	"github.com/wyfcoding/datacollector/pkg/metrics"
)

const flagTable = "pano_index"

// CalendarSource 交易日历来源，通常是作为日历基准的 Compustat 指数
type CalendarSource interface {
	CalendarList(ctx context.Context) ([]time.Time, error)
}

// Deps PanoIndex 的外部依赖
type Deps struct {
	Attributes domain.AttributeSource
	Universe   domain.SecurityRepository
	Calendar   CalendarSource
	Cache      cache.Store
	Metrics    *metrics.Metrics
}

// PanoIndex 成分股由过滤器决定的指数：证券在过滤器成立的交易日属于指数
type PanoIndex struct {
	name   string
	filter domain.Filter
	opts   index.Options
	deps   Deps
	id     string
}

var _ index.Index = (*PanoIndex)(nil)

// NewPanoIndex 保存名称与过滤器，不访问数据库
func NewPanoIndex(name string, filter domain.Filter, opts index.Options, deps Deps) (*PanoIndex, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: pano index name is empty", index.ErrValidation)
	}
	if filter == nil {
		return nil, fmt.Errorf("%w: pano index %s has no filter", index.ErrValidation, name)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Attributes == nil || deps.Universe == nil || deps.Calendar == nil || deps.Cache == nil {
		return nil, errors.New("pano index: attributes, universe, calendar and cache are required")
	}
	return &PanoIndex{
		name:   name,
		filter: filter,
		opts:   opts,
		deps:   deps,
		id:     fmt.Sprintf("%s-%016x", name, xxhash.Sum64String(filter.String())),
	}, nil
}

func (p *PanoIndex) Name() string { return p.name }

func (p *PanoIndex) Filter() domain.Filter { return p.filter }

// Flag 缓存 key：pano_index_{name}-{filter hash}_{purpose}
func (p *PanoIndex) Flag(purpose string) string {
	return cache.Flag(flagTable, p.id, purpose)
}

// CalendarList 日历来源的交易日，升序去重
func (p *PanoIndex) CalendarList(ctx context.Context) ([]time.Time, error) {
	return cache.Remember(ctx, p.deps.Cache, p.Flag("calendar_list"), p.observe("calendar_list"), func(ctx context.Context) ([]time.Time, error) {
		dates, err := p.deps.Calendar.CalendarList(ctx)
		if err != nil {
			return nil, err
		}
		dates = domain.Normalize(dates)
		if len(dates) == 0 {
			return nil, fmt.Errorf("%w: empty calendar for %s", index.ErrNotFound, p.name)
		}
		return dates, nil
	})
}

// BenchStartDate 日历第一天
func (p *PanoIndex) BenchStartDate(ctx context.Context) (time.Time, error) {
	dates, err := p.CalendarList(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return dates[0], nil
}

// NewCompanies 过滤器成立的交易日压缩成的成员区间
func (p *PanoIndex) NewCompanies(ctx context.Context) ([]index.Constituent, error) {
	return cache.Remember(ctx, p.deps.Cache, p.Flag("new_companies"), p.observe("new_companies"), p.loadMembership)
}

func (p *PanoIndex) loadMembership(ctx context.Context) ([]index.Constituent, error) {
	defer logger.LogDuration(ctx, "Resolving pano membership", "index", p.name, "filter", p.filter.String())()

	calendar, err := p.CalendarList(ctx)
	if err != nil {
		return nil, err
	}
	securities, err := p.deps.Universe.Universe(ctx)
	if err != nil {
		return nil, err
	}
	if len(securities) == 0 {
		return nil, fmt.Errorf("%w: empty %s universe", index.ErrNotFound, domain.SecurityTable)
	}

	gvkeys := make([]string, 0, len(securities))
	for _, s := range securities {
		gvkeys = append(gvkeys, s.Gvkey)
	}
	slices.Sort(gvkeys)
	gvkeys = slices.Compact(gvkeys)

	valid, err := domain.ValidTimeBy(ctx, p.deps.Attributes, p.filter, gvkeys)
	if err != nil {
		return nil, err
	}

	var rows []index.Constituent
	for _, s := range securities {
		rows = append(rows, Memberships(s, p.name, valid[s.Gvkey], calendar)...)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: filter %s matches no security", index.ErrNotFound, p.filter)
	}
	index.SortConstituents(rows)
	logger.Info(ctx, "pano membership resolved", "index", p.name, "securities", len(securities), "rows", len(rows))
	return rows, nil
}

// Memberships 把有效日与交易日历求交，连续交易日合并为一个区间。
// 区间延续到日历最后一天时 Thru 为空
func Memberships(s domain.Security, name string, valid, calendar []time.Time) []index.Constituent {
	if len(valid) == 0 {
		return nil
	}
	set := make(map[time.Time]struct{}, len(valid))
	for _, d := range valid {
		set[d.UTC()] = struct{}{}
	}

	var out []index.Constituent
	start := -1
	flush := func(end int) {
		c := index.Constituent{Gvkey: s.Gvkey, Iid: s.Iid, Gvkeyx: name, From: calendar[start]}
		if end < len(calendar)-1 {
			thru := calendar[end]
			c.Thru = &thru
		}
		out = append(out, c)
		start = -1
	}
	for i, d := range calendar {
		_, ok := set[d.UTC()]
		switch {
		case ok && start < 0:
			start = i
		case !ok && start >= 0:
			flush(i - 1)
		}
	}
	if start >= 0 {
		flush(len(calendar) - 1)
	}
	return out
}

func (p *PanoIndex) observe(purpose string) func(bool) {
	return func(hit bool) { p.deps.Metrics.ObserveCache(purpose, hit) }
}
