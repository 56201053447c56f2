package cache

import (
	"context"
	"sync"
)

// MemoryStore 进程内缓存，不过期、不淘汰，返回写入时的同一个值
type MemoryStore struct {
	m sync.Map
}

// NewMemoryStore 创建进程内缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get 读取缓存
func (s *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := s.m.Load(key)
	if !ok {
		return false, nil
	}
	return true, assign(dest, v)
}

// Set 写入缓存
func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	s.m.Store(key, value)
	return nil
}

// Len 返回条目数
func (s *MemoryStore) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
