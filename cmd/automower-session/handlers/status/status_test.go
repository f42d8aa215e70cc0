package status

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/wrale/automower-session/cmd/automower-session/handlers/common"
	"github.com/wrale/automower-session/internal/mowerstate"
)

type failingStore struct {
	mowerstate.Store
}

func (f *failingStore) GetStatus(ctx context.Context, mowerID string) (*mowerstate.Status, error) {
	return nil, errors.New("connection refused")
}

func TestStatusHandler(t *testing.T) {
	known := &mowerstate.Status{
		MowerID:        "mower-1",
		BatteryPercent: 42,
		Activity:       "MOWING",
		Connected:      true,
		ReceivedAt:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	memory := mowerstate.NewMemoryStore()
	if err := memory.SaveStatus(context.Background(), known); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	tests := []struct {
		name      string
		store     mowerstate.Store
		path      string
		wantCode  int
		wantError string
		wantBody  *mowerstate.Status
	}{
		{
			name:     "known mower",
			store:    memory,
			path:     "/mowers/mower-1/status",
			wantCode: http.StatusOK,
			wantBody: known,
		},
		{
			name:      "unknown mower",
			store:     memory,
			path:      "/mowers/mower-2/status",
			wantCode:  http.StatusNotFound,
			wantError: "not_found",
		},
		{
			name:      "store failure",
			store:     &failingStore{},
			path:      "/mowers/mower-1/status",
			wantCode:  http.StatusInternalServerError,
			wantError: "server_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			router.Method(http.MethodGet, "/mowers/{id}/status",
				New(tt.store, slog.New(slog.NewTextHandler(io.Discard, nil))))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}

			if tt.wantBody != nil {
				var got mowerstate.Status
				if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if diff := cmp.Diff(tt.wantBody, &got); diff != "" {
					t.Errorf("response mismatch (-want +got):\n%s", diff)
				}
				return
			}

			var resp common.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
		})
	}
}
