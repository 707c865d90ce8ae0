package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"geoguidego/pkg/model"
	"geoguidego/pkg/store"
)

// stateKey is the persistent_state row holding the settings JSON.
const stateKey = "settings"

// Service holds the current user settings, persists changes, and
// broadcasts updates to subscribers. Subscribers get the current value
// immediately on subscribe, then every subsequent update.
type Service struct {
	state    store.StateStore
	validate *validator.Validate

	mu      sync.RWMutex
	current model.Settings
	subs    []chan model.Settings
}

// NewService loads persisted settings, falling back to defaults when
// nothing is stored or the stored blob fails validation.
func NewService(state store.StateStore) *Service {
	s := &Service{
		state:    state,
		validate: validator.New(),
		current:  model.DefaultSettings(),
	}

	if raw, ok := state.GetState(context.Background(), stateKey); ok {
		var loaded model.Settings
		if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
			slog.Warn("Stored settings unreadable, using defaults", "error", err)
		} else if err := s.validate.Struct(loaded); err != nil {
			slog.Warn("Stored settings invalid, using defaults", "error", err)
		} else {
			s.current = loaded
		}
	}

	return s
}

// Get returns the current settings snapshot.
func (s *Service) Get() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates, persists, and broadcasts new settings. Invalid
// settings are rejected and the current value is left untouched.
func (s *Service) Update(ctx context.Context, next model.Settings) error {
	if err := s.validate.Struct(next); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := s.state.SetState(ctx, stateKey, string(raw)); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}

	s.mu.Lock()
	s.current = next
	subs := make([]chan model.Settings, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		// Coalescing send: a slow subscriber keeps only the latest value
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}

	slog.Info("Settings updated",
		"radius_m", next.RadiusM,
		"max_objects", next.MaxObjects,
		"language", next.Language)
	return nil
}

// Subscribe returns a channel that immediately delivers the current
// settings and then every update. The channel has capacity 1; stale
// values are replaced, not queued.
func (s *Service) Subscribe() <-chan model.Settings {
	ch := make(chan model.Settings, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	ch <- s.current
	s.mu.Unlock()
	return ch
}
