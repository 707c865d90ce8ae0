// Package history records announcements without ever blocking the
// announcement path.
package history

import (
	"context"
	"log/slog"
	"time"

	"geoguidego/pkg/model"
	"geoguidego/pkg/store"
)

const defaultBuffer = 256

// CachePruner removes response-cache rows older than the given age.
type CachePruner interface {
	PruneCache(olderThan time.Duration) error
}

// Recorder appends history entries through a buffered channel consumed
// by a single writer goroutine. Append never blocks: when the buffer is
// full the entry is dropped with a warning.
type Recorder struct {
	store   store.HistoryStore
	cache   CachePruner // nil skips cache pruning
	entries chan *model.HistoryEntry

	retention       time.Duration
	cleanupInterval time.Duration
}

// NewRecorder creates a recorder. retention <= 0 disables cleanup; the
// response cache shares the history retention window.
func NewRecorder(s store.HistoryStore, cache CachePruner, retention, cleanupInterval time.Duration) *Recorder {
	return &Recorder{
		store:           s,
		cache:           cache,
		entries:         make(chan *model.HistoryEntry, defaultBuffer),
		retention:       retention,
		cleanupInterval: cleanupInterval,
	}
}

// Append queues the entry for writing. Fire-and-forget.
func (r *Recorder) Append(e *model.HistoryEntry) {
	select {
	case r.entries <- e:
	default:
		slog.Warn("History buffer full, entry dropped", "poi", e.POIKey)
	}
}

// Run consumes queued entries and performs periodic retention cleanup
// until the context is cancelled. Cleanup also runs once at startup.
func (r *Recorder) Run(ctx context.Context) {
	r.cleanup(ctx)

	var tick <-chan time.Time
	if r.retention > 0 && r.cleanupInterval > 0 {
		ticker := time.NewTicker(r.cleanupInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.entries:
			if err := r.store.AppendHistory(context.Background(), e); err != nil {
				slog.Error("Failed to write history entry", "poi", e.POIKey, "error", err)
			}
		case <-tick:
			r.cleanup(ctx)
		}
	}
}

func (r *Recorder) cleanup(ctx context.Context) {
	if r.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-r.retention)
	n, err := r.store.DeleteHistoryBefore(ctx, cutoff)
	if err != nil {
		slog.Error("History retention cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("History retention cleanup", "deleted", n, "cutoff", cutoff)
	}

	if r.cache != nil {
		if err := r.cache.PruneCache(r.retention); err != nil {
			slog.Error("Cache prune failed", "error", err)
		}
	}
}

// List returns the most recent entries, newest first.
func (r *Recorder) List(ctx context.Context, limit int) ([]*model.HistoryEntry, error) {
	return r.store.ListHistory(ctx, limit)
}

// Clear empties the announcement log.
func (r *Recorder) Clear(ctx context.Context) error {
	return r.store.ClearHistory(ctx)
}
