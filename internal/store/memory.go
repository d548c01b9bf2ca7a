package store

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryKV keeps values for the lifetime of the process.
type MemoryKV struct {
	cache *cache.Cache
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{cache: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := m.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := value.(string)
	return s, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *MemoryKV) Ping(context.Context) error { return nil }

func (m *MemoryKV) Close() error { return nil }
