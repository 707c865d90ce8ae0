package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"geoguidego/pkg/geo"
	"geoguidego/pkg/store"
)

// POIHandler exposes the stored POI set.
type POIHandler struct {
	pois  store.POIStore
	fixes FixSource
}

// NewPOIHandler creates a POI handler.
func NewPOIHandler(pois store.POIStore, fixes FixSource) *POIHandler {
	return &POIHandler{pois: pois, fixes: fixes}
}

// Handle handles GET /api/pois. Distances are computed against the
// latest fix when one exists; without a fix they stay zero. Results are
// sorted by distance ascending.
func (h *POIHandler) Handle(w http.ResponseWriter, r *http.Request) {
	all, err := h.pois.AllPOIs(r.Context())
	if err != nil {
		slog.Error("Failed to read POI store", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	if fix, ferr := h.fixes.Latest(); ferr == nil {
		here := geo.Point{Lat: fix.Lat, Lon: fix.Lon}
		for _, p := range all {
			p.Distance = geo.Distance(here, geo.Point{Lat: p.Lat, Lon: p.Lon})
		}
		sort.SliceStable(all, func(i, j int) bool {
			return all[i].Distance < all[j].Distance
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(all); err != nil {
		slog.Error("Failed to encode POI response", "error", err)
	}
}
