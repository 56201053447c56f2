package cache

import (
	"context"
	"reflect"
)

// TieredStore 二级缓存：L1 进程内，L2 共享（通常为 Redis）。
// L2 命中后回填 L1，写入时两级都写
type TieredStore struct {
	l1 Store
	l2 Store
}

// NewTieredStore 创建二级缓存
func NewTieredStore(l1, l2 Store) *TieredStore {
	return &TieredStore{l1: l1, l2: l2}
}

// Get 读取缓存
func (s *TieredStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	if hit, err := s.l1.Get(ctx, key, dest); err != nil || hit {
		return hit, err
	}
	hit, err := s.l2.Get(ctx, key, dest)
	if err != nil || !hit {
		return hit, err
	}
	return true, s.l1.Set(ctx, key, reflect.ValueOf(dest).Elem().Interface())
}

// Set 写入缓存
func (s *TieredStore) Set(ctx context.Context, key string, value any) error {
	if err := s.l2.Set(ctx, key, value); err != nil {
		return err
	}
	return s.l1.Set(ctx, key, value)
}
