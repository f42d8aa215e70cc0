package mowerstate

import (
	"time"

	"github.com/wrale/automower-session/internal/stream"
)

// Status is the last known state of a single mower
type Status struct {
	MowerID         string    `json:"mower_id"`
	BatteryPercent  int       `json:"battery_percent"`
	Mode            string    `json:"mode"`
	Activity        string    `json:"activity"`
	State           string    `json:"state"`
	ErrorCode       int       `json:"error_code,omitempty"`
	NextStart       int64     `json:"next_start_timestamp,omitempty"`
	OverrideAction  string    `json:"override_action,omitempty"`
	Connected       bool      `json:"connected"`
	StatusTimestamp int64     `json:"status_timestamp"`
	ReceivedAt      time.Time `json:"received_at"`
}

// FromEvent flattens a status event received at the given time
func FromEvent(ev *stream.StatusEvent, receivedAt time.Time) *Status {
	attrs := ev.Attributes
	return &Status{
		MowerID:         ev.ID,
		BatteryPercent:  attrs.Battery.BatteryPercent,
		Mode:            attrs.Mower.Mode,
		Activity:        attrs.Mower.Activity,
		State:           attrs.Mower.State,
		ErrorCode:       attrs.Mower.ErrorCode,
		NextStart:       attrs.Planner.NextStartTimestamp,
		OverrideAction:  attrs.Planner.Override.Action,
		Connected:       attrs.Metadata.Connected,
		StatusTimestamp: attrs.Metadata.StatusTimestamp,
		ReceivedAt:      receivedAt,
	}
}
