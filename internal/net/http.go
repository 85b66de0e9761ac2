package net

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"parlor/server/internal/hub"
	"parlor/server/internal/match"
)

// diagnosticsPayload is the JSON body served by /diagnostics.
type diagnosticsPayload struct {
	ConnectedPlayers int `json:"connected_players"`
	OpenRooms        int `json:"open_rooms"`
	ActiveMatches    int `json:"active_matches"`
	QueueLength      int `json:"queue_length"`
}

// NewMux assembles the HTTP surface: the websocket endpoint plus the two
// plain-HTTP probes.
func NewMux(wsHandler http.Handler, registry *hub.Registry, coord *match.Coordinator, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Debug("failed to write health response", "error", err)
		}
	})

	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		snap := coord.Snapshot()
		payload := diagnosticsPayload{
			ConnectedPlayers: registry.Count(),
			OpenRooms:        snap.OpenRooms,
			ActiveMatches:    snap.ActiveMatches,
			QueueLength:      snap.QueueLength,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Debug("failed to write diagnostics response", "error", err)
		}
	})

	return mux
}
