package mowerstate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/wrale/automower-session/internal/stream"
)

func TestFromEvent(t *testing.T) {
	var ev stream.StatusEvent
	raw := `{
		"id": "mower-1",
		"attributes": {
			"battery": {"batteryPercent": 64},
			"mower": {"mode": "MAIN_AREA", "activity": "PARKED_IN_CS", "state": "RESTRICTED", "errorCode": 0},
			"planner": {"nextStartTimestamp": 1609942200000, "override": {"action": "NOT_ACTIVE"}},
			"metadata": {"connected": true, "statusTimestamp": 1609937981000}
		}
	}`
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshaling event: %v", err)
	}

	received := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	want := &Status{
		MowerID:         "mower-1",
		BatteryPercent:  64,
		Mode:            "MAIN_AREA",
		Activity:        "PARKED_IN_CS",
		State:           "RESTRICTED",
		NextStart:       1609942200000,
		OverrideAction:  "NOT_ACTIVE",
		Connected:       true,
		StatusTimestamp: 1609937981000,
		ReceivedAt:      received,
	}

	if diff := cmp.Diff(want, FromEvent(&ev, received)); diff != "" {
		t.Errorf("FromEvent() mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.GetStatus(ctx, "mower-1")
	if err != nil || got != nil {
		t.Fatalf("GetStatus() on empty store = %v, %v; want nil, nil", got, err)
	}

	if err := store.SaveStatus(ctx, &Status{}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SaveStatus() without id error = %v, want %v", err, ErrInvalidStatus)
	}

	first := &Status{MowerID: "mower-1", BatteryPercent: 90, Activity: "MOWING"}
	second := &Status{MowerID: "mower-1", BatteryPercent: 85, Activity: "GOING_HOME"}

	for _, status := range []*Status{first, second} {
		if err := store.SaveStatus(ctx, status); err != nil {
			t.Fatalf("SaveStatus() error = %v", err)
		}
	}

	got, err = store.GetStatus(ctx, "mower-1")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("GetStatus() mismatch (-want +got):\n%s", diff)
	}

	// Stored values are copies
	got.BatteryPercent = 0
	again, _ := store.GetStatus(ctx, "mower-1")
	if again.BatteryPercent != 85 {
		t.Errorf("stored status was modified through a returned copy")
	}

	if err := store.CheckHealth(ctx); err != nil {
		t.Errorf("CheckHealth() error = %v", err)
	}
}

func TestRedisStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisStore(client, 0)
	ctx := context.Background()

	if err := store.CheckHealth(ctx); err == nil {
		t.Error("CheckHealth() expected error for unreachable redis")
	}
	if err := store.SaveStatus(ctx, &Status{MowerID: "mower-1"}); err == nil {
		t.Error("SaveStatus() expected error for unreachable redis")
	}
	if _, err := store.GetStatus(ctx, "mower-1"); err == nil {
		t.Error("GetStatus() expected error for unreachable redis")
	}
	if err := store.SaveStatus(ctx, nil); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SaveStatus(nil) error = %v, want %v", err, ErrInvalidStatus)
	}
}
