package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"geoguidego/pkg/model"
	"geoguidego/pkg/tracker"
	"geoguidego/pkg/version"
)

// StatusSource provides the engine status snapshot.
type StatusSource interface {
	Status() model.EngineStatus
}

// FixSource provides the latest location fix.
type FixSource interface {
	Latest() (model.Fix, error)
}

// StatusResponse is the API response structure.
type StatusResponse struct {
	Version   string                           `json:"version"`
	UptimeS   int64                            `json:"uptime_s"`
	Engine    model.EngineStatus               `json:"engine"`
	Fix       *model.Fix                       `json:"fix,omitempty"`
	Providers map[string]tracker.ProviderStats `json:"providers"`
}

// StatusHandler aggregates engine, location, and provider statistics.
type StatusHandler struct {
	engine  StatusSource
	fixes   FixSource
	stats   *tracker.Tracker
	started time.Time
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(engine StatusSource, fixes FixSource, stats *tracker.Tracker) *StatusHandler {
	return &StatusHandler{
		engine:  engine,
		fixes:   fixes,
		stats:   stats,
		started: time.Now(),
	}
}

// snapshot assembles the full status payload.
func (h *StatusHandler) snapshot() StatusResponse {
	resp := StatusResponse{
		Version: version.Version,
		UptimeS: int64(time.Since(h.started).Seconds()),
		Engine:  h.engine.Status(),
	}
	if h.stats != nil {
		resp.Providers = h.stats.Snapshot()
	}
	if fix, err := h.fixes.Latest(); err == nil {
		resp.Fix = &fix
	}
	return resp
}

// Handle handles GET /api/status.
func (h *StatusHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.snapshot()); err != nil {
		slog.Error("Failed to encode status response", "error", err)
	}
}
