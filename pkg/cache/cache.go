package cache

import (
	"context"
)

// Cacher defines the caching interface used by the HTTP request layer.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// Null is a Cacher that never hits. Used when a provider opts out of
// response caching.
type Null struct{}

func (Null) GetCache(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (Null) SetCache(ctx context.Context, key string, val []byte) error { return nil }
