package store

import (
	"context"
	"time"

	"geoguidego/pkg/model"
)

// POIStore handles Point of Interest persistence.
// POIs are only ever inserted or replaced, never deleted.
type POIStore interface {
	GetPOI(ctx context.Context, key string) (*model.POI, error)
	AllPOIs(ctx context.Context) ([]*model.POI, error)
	// UpsertPOIs replaces the stored record for every POI in the batch
	// (identity = poi key) in one transaction.
	UpsertPOIs(ctx context.Context, pois []*model.POI) error
	// SubscribePOIs returns a channel that receives a signal after every
	// mutation. The channel has capacity 1; signals coalesce.
	SubscribePOIs() <-chan struct{}
}

// HistoryStore handles the append-only announcement log.
type HistoryStore interface {
	AppendHistory(ctx context.Context, e *model.HistoryEntry) error
	ListHistory(ctx context.Context, limit int) ([]*model.HistoryEntry, error)
	DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ClearHistory(ctx context.Context) error
}

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	HasCache(ctx context.Context, key string) (bool, error)
	SetCache(ctx context.Context, key string, val []byte) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	POIStore
	HistoryStore
	CacheStore
	StateStore

	// Close closes the store connection.
	Close() error
}
