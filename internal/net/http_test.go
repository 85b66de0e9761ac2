package net

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parlor/server/internal/hub"
	"parlor/server/internal/match"
	"parlor/server/internal/store"
)

func newTestMux(t *testing.T) (*http.ServeMux, *match.Coordinator) {
	t.Helper()
	registry := hub.NewRegistry(nil)
	coord := match.New(registry, store.NewMemoryStores().Stores(), time.Minute, nil)
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})
	return NewMux(ws, registry, coord, nil), coord
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	mux, coord := newTestMux(t)
	if _, err := coord.CreateRoom("alice", ""); err != nil {
		t.Fatalf("create room failed: %v", err)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload diagnosticsPayload
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.OpenRooms != 1 {
		t.Fatalf("expected one open room, got %d", payload.OpenRooms)
	}
	if payload.ConnectedPlayers != 0 || payload.ActiveMatches != 0 || payload.QueueLength != 0 {
		t.Fatalf("unexpected counters %+v", payload)
	}
}
