package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// BoundedStore 有界进程内缓存，超过容量时按 TinyLFU 淘汰
type BoundedStore struct {
	c *ristretto.Cache[string, any]
}

// NewBoundedStore 创建最多保存 maxEntries 个条目的缓存
func NewBoundedStore(maxEntries int64) (*BoundedStore, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache: max entries must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// 按条目计数，不计内部结构体开销
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &BoundedStore{c: c}, nil
}

// Get 读取缓存
func (s *BoundedStore) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return false, nil
	}
	return true, assign(dest, v)
}

// Set 写入缓存；写入被准入策略拒绝时静默丢弃
func (s *BoundedStore) Set(_ context.Context, key string, value any) error {
	s.c.Set(key, value, 1)
	s.c.Wait()
	return nil
}

// Close 释放后台协程
func (s *BoundedStore) Close() {
	s.c.Close()
}
