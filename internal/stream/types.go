// Package stream maintains the authenticated real-time event connection to
// the Automower Connect websocket API
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/wrale/automower-session/internal/tokens"
)

// Kind is the discriminant of an inbound event
type Kind string

// Recognized event kinds
const (
	KindStatus    Kind = "status"
	KindPositions Kind = "positions"
	KindSettings  Kind = "settings"
)

// Event is the envelope of every inbound message
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// Kind normalizes the type tag. The vendor sends "status-event" style tags.
func (e *Event) Kind() Kind {
	return Kind(strings.TrimSuffix(strings.ToLower(e.Type), "-event"))
}

// StatusEvent is a decoded status event for a single mower
type StatusEvent struct {
	ID         string           `json:"id"` // Mower identifier
	Attributes StatusAttributes `json:"attributes"`
}

// StatusAttributes carries the mower state reported by a status event
type StatusAttributes struct {
	Battery struct {
		BatteryPercent int `json:"batteryPercent"`
	} `json:"battery"`
	Mower struct {
		Mode               string `json:"mode"`
		Activity           string `json:"activity"`
		State              string `json:"state"`
		ErrorCode          int    `json:"errorCode"`
		ErrorCodeTimestamp int64  `json:"errorCodeTimestamp"`
	} `json:"mower"`
	Planner struct {
		NextStartTimestamp int64 `json:"nextStartTimestamp"`
		Override           struct {
			Action string `json:"action"`
		} `json:"override"`
		RestrictedReason string `json:"restrictedReason"`
	} `json:"planner"`
	Metadata struct {
		Connected       bool  `json:"connected"`
		StatusTimestamp int64 `json:"statusTimestamp"`
	} `json:"metadata"`
}

// TokenProvider supplies bearer tokens and accepts invalidation feedback
type TokenProvider interface {
	CurrentToken(ctx context.Context) (*tokens.AccessToken, error)
	FlagAsInvalid()
}

// Transport is a persistent socket connection delivering inbound events
type Transport interface {
	// Open establishes the connection using token
	Open(ctx context.Context, token *tokens.AccessToken) error

	// Close terminates the connection immediately
	Close() error

	// Ping sends a transport-level liveness ping
	Ping() error

	// On registers the single inbound event handler
	On(handler func(*Event))
}

// Timer is a restartable single-shot scheduler
type Timer interface {
	// Start invokes callback once after d, replacing any pending callback
	Start(callback func(), d time.Duration)

	// Stop cancels a pending callback, if any
	Stop()
}

// State is the lifecycle state of a session
type State int

// Session states
const (
	StateStopped State = iota
	StateStarting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
