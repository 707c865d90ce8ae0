// Package api serves the status and control HTTP surface: engine
// status, announcement history, POI contents, settings, and a websocket
// pushing status snapshots.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"geoguidego/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, status *StatusHandler, settingsH *SettingsHandler, historyH *HistoryHandler, pois *POIHandler, ws *WSHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Status Endpoint
	mux.HandleFunc("GET /api/status", status.Handle)

	// 4. Settings Endpoints
	mux.HandleFunc("GET /api/settings", settingsH.HandleGet)
	mux.HandleFunc("POST /api/settings", settingsH.HandleUpdate)

	// 5. History Endpoints
	mux.HandleFunc("GET /api/history", historyH.HandleList)
	mux.HandleFunc("POST /api/history/clear", historyH.HandleClear)

	// 6. POI Endpoint
	mux.HandleFunc("GET /api/pois", pois.Handle)

	// 7. Logs Endpoint
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 8. Websocket Status Push
	if ws != nil {
		mux.HandleFunc("GET /ws", ws.Handle)
	}

	// 9. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
