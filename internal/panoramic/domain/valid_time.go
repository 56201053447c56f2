package domain

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// AttributeSource 叶子过滤器的求值端：返回每个 gvkey 满足条件的日期，升序去重
type AttributeSource interface {
	ValidDates(ctx context.Context, f *AttributeFilter, gvkeys []string) (map[string][]time.Time, error)
}

// ValidTime 在给定 gvkey 上求过滤器成立的日期集合（升序、去重）。
// 叶子返回所有 gvkey 日期的并集，And 取交集，Or 取并集，两侧使用同一组 gvkey
func ValidTime(ctx context.Context, src AttributeSource, f Filter, gvkeys ...string) ([]time.Time, error) {
	switch n := f.(type) {
	case *AttributeFilter:
		byKey, err := src.ValidDates(ctx, n, gvkeys)
		if err != nil {
			return nil, err
		}
		var out []time.Time
		for _, g := range gvkeys {
			out = Union(out, byKey[g])
		}
		return out, nil
	case *AndFilter:
		left, right, err := evalPair(ctx, src, n.Left, n.Right, gvkeys)
		if err != nil {
			return nil, err
		}
		return Intersect(left, right), nil
	case *OrFilter:
		left, right, err := evalPair(ctx, src, n.Left, n.Right, gvkeys)
		if err != nil {
			return nil, err
		}
		return Union(left, right), nil
	default:
		return nil, fmt.Errorf("unknown filter type %T", f)
	}
}

func evalPair(ctx context.Context, src AttributeSource, l, r Filter, gvkeys []string) ([]time.Time, []time.Time, error) {
	left, err := ValidTime(ctx, src, l, gvkeys...)
	if err != nil {
		return nil, nil, err
	}
	right, err := ValidTime(ctx, src, r, gvkeys...)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// ValidTimeBy 对每个 gvkey 分别求值，用于构建成分股区间。
// 每个叶子只查询一次
func ValidTimeBy(ctx context.Context, src AttributeSource, f Filter, gvkeys []string) (map[string][]time.Time, error) {
	switch n := f.(type) {
	case *AttributeFilter:
		return src.ValidDates(ctx, n, gvkeys)
	case *AndFilter:
		return combineBy(ctx, src, n.Left, n.Right, gvkeys, Intersect)
	case *OrFilter:
		return combineBy(ctx, src, n.Left, n.Right, gvkeys, Union)
	default:
		return nil, fmt.Errorf("unknown filter type %T", f)
	}
}

func combineBy(ctx context.Context, src AttributeSource, l, r Filter, gvkeys []string, combine func(a, b []time.Time) []time.Time) (map[string][]time.Time, error) {
	left, err := ValidTimeBy(ctx, src, l, gvkeys)
	if err != nil {
		return nil, err
	}
	right, err := ValidTimeBy(ctx, src, r, gvkeys)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]time.Time, len(gvkeys))
	for _, g := range gvkeys {
		if dates := combine(left[g], right[g]); len(dates) > 0 {
			out[g] = dates
		}
	}
	return out, nil
}

// Normalize 排序并去重，返回新切片
func Normalize(dates []time.Time) []time.Time {
	out := slices.Clone(dates)
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(out, func(a, b time.Time) bool { return a.Equal(b) })
}

// Intersect 两个日期集合的交集
func Intersect(a, b []time.Time) []time.Time {
	a, b = Normalize(a), Normalize(b)
	out := make([]time.Time, 0, min(len(a), len(b)))
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch c := a[i].Compare(b[j]); {
		case c < 0:
			i++
		case c > 0:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Union 两个日期集合的并集
func Union(a, b []time.Time) []time.Time {
	return Normalize(append(slices.Clone(a), b...))
}
