// Package cache 提供查询结果缓存：进程内存、有界内存（ristretto）、Redis、二级缓存
package cache

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Store 查询结果缓存。值对调用方不透明，写入后在进程生命周期内不会被修改
type Store interface {
	// Get 将 key 对应的值写入 dest（非 nil 指针），返回是否命中
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set 写入 key 对应的值
	Set(ctx context.Context, key string, value any) error
}

// Flag 生成缓存 key：{table}_{id}_{purpose}
func Flag(table, id, purpose string) string {
	return strings.Join([]string{table, id, purpose}, "_")
}

// inflight 合并同一 store、同一 key 上并发的未命中加载
var inflight singleflight.Group

// Remember 先查缓存，未命中时调用 load 并写回缓存。
// 同一 key 的并发未命中只执行一次 load，load 不随单个调用方取消；
// 调用方的 ctx 取消时只有它自己提前返回。
// observe 用于记录命中情况，可以为 nil；只有真正执行了 load 的调用记为未命中
func Remember[T any](ctx context.Context, s Store, key string, observe func(hit bool), load func(ctx context.Context) (T, error)) (T, error) {
	var v T
	hit, err := s.Get(ctx, key, &v)
	if err != nil {
		return v, fmt.Errorf("cache get %s: %w", key, err)
	}
	if hit {
		if observe != nil {
			observe(true)
		}
		return v, nil
	}

	loaded := false
	ch := inflight.DoChan(fmt.Sprintf("%p/%s", s, key), func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		var cached T
		if hit, err := s.Get(lctx, key, &cached); err == nil && hit {
			return cached, nil
		}
		loaded = true
		val, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if err := s.Set(lctx, key, val); err != nil {
			return nil, fmt.Errorf("cache set %s: %w", key, err)
		}
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if observe != nil {
			observe(!loaded)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ = res.Val.(T)
		return v, nil
	}
}

// assign 把 value 赋给 dest 指向的变量
func assign(dest, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("cache: dest must be a non-nil pointer, got %T", dest)
	}
	target := dv.Elem()
	vv := reflect.ValueOf(value)
	if !vv.IsValid() {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	if !vv.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("cache: cannot assign %T to %s", value, target.Type())
	}
	target.Set(vv)
	return nil
}
