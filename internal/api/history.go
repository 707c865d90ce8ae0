package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"geoguidego/pkg/model"
)

// defaultHistoryLimit bounds unparameterized history listings.
const defaultHistoryLimit = 100

// HistoryService is the slice of the history recorder the API needs.
type HistoryService interface {
	List(ctx context.Context, limit int) ([]*model.HistoryEntry, error)
	Clear(ctx context.Context) error
}

// HistoryHandler exposes the announcement log.
type HistoryHandler struct {
	svc HistoryService
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(svc HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// HandleList handles GET /api/history. Optional ?limit=N caps the
// result; entries come back newest first.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.svc.List(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list history", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*model.HistoryEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		slog.Error("Failed to encode history response", "error", err)
	}
}

// HandleClear handles POST /api/history/clear.
func (h *HistoryHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context()); err != nil {
		slog.Error("Failed to clear history", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	slog.Info("Announcement history cleared via API")
	w.WriteHeader(http.StatusOK)
}
