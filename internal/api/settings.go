package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"geoguidego/pkg/model"
)

// SettingsService is the slice of the settings service the API needs.
type SettingsService interface {
	Get() model.Settings
	Update(ctx context.Context, next model.Settings) error
}

// SettingsHandler exposes the user settings.
type SettingsHandler struct {
	svc SettingsService
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// HandleGet handles GET /api/settings.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.svc.Get()); err != nil {
		slog.Error("Failed to encode settings response", "error", err)
	}
}

// HandleUpdate handles POST /api/settings. The full settings object is
// replaced; partial updates are not supported.
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var next model.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		http.Error(w, "Invalid settings payload", http.StatusBadRequest)
		return
	}

	if err := h.svc.Update(r.Context(), next); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(next); err != nil {
		slog.Error("Failed to encode settings response", "error", err)
	}
}
