// Package location provides location fix providers and the shared
// latest-fix cell the engine polls.
package location

import (
	"context"
	"errors"
	"sync"

	"geoguidego/pkg/model"
)

// ErrNoFix is returned before the first fix arrives.
var ErrNoFix = errors.New("no location fix yet")

// Provider produces location fixes. Run blocks until the context is
// cancelled, pushing fixes into the sink.
type Provider interface {
	Run(ctx context.Context, sink *Tracker) error
	Name() string
}

// Tracker holds the most recent fix. Writers overwrite, readers always
// see the latest value; there is no queue.
type Tracker struct {
	mu   sync.RWMutex
	fix  model.Fix
	seen bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Update replaces the current fix.
func (t *Tracker) Update(fix model.Fix) {
	t.mu.Lock()
	t.fix = fix
	t.seen = true
	t.mu.Unlock()
}

// Latest returns the most recent fix, or ErrNoFix before the first one.
func (t *Tracker) Latest() (model.Fix, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.seen {
		return model.Fix{}, ErrNoFix
	}
	return t.fix, nil
}
