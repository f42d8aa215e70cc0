package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wrale/automower-session/internal/mowerstate"
	"github.com/wrale/automower-session/internal/stream"
)

type stubSession struct {
	state stream.State
}

func (s *stubSession) State() stream.State {
	return s.state
}

func newTestServer(state stream.State) (*server, *mowerstate.MemoryStore) {
	store := mowerstate.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newServer(&stubSession{state: state}, store, logger), store
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(stream.StateConnected)

	var ev stream.StatusEvent
	if err := json.Unmarshal([]byte(`{"id":"mower-1","attributes":{"battery":{"batteryPercent":80},"mower":{"activity":"MOWING"}}}`), &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	srv.recordStatus(&ev)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantCode: http.StatusOK},
		{name: "known mower", method: http.MethodGet, path: "/mowers/mower-1/status", wantCode: http.StatusOK},
		{name: "unknown mower", method: http.MethodGet, path: "/mowers/mower-9/status", wantCode: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPost, path: "/health", wantCode: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/device", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.wantCode {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, tt.wantCode)
			}
		})
	}
}

func TestServer_HealthDegraded(t *testing.T) {
	srv, _ := newTestServer(stream.StateReconnecting)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestServer_RecordStatus(t *testing.T) {
	srv, store := newTestServer(stream.StateConnected)

	var ev stream.StatusEvent
	if err := json.Unmarshal([]byte(`{"id":"mower-1","attributes":{"battery":{"batteryPercent":55},"metadata":{"connected":true}}}`), &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	srv.recordStatus(&ev)

	got, err := store.GetStatus(context.Background(), "mower-1")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if got == nil || got.BatteryPercent != 55 || !got.Connected {
		t.Errorf("stored status = %+v, want battery 55 and connected", got)
	}

	// Events without an id are dropped by the store and only logged
	srv.recordStatus(&stream.StatusEvent{})
}
