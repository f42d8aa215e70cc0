package stream

import (
	"log/slog"
	"time"
)

const (
	// DefaultPollInterval is how often the keep-alive check runs
	DefaultPollInterval = time.Minute

	// DefaultStaleThreshold is how long the stream may stay silent before
	// the connection is assumed dead
	DefaultStaleThreshold = time.Hour
)

// Option configures a session
type Option func(*Session)

// WithPollInterval sets the keep-alive interval
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = d
	}
}

// WithStaleThreshold sets the silence tolerated before reconnecting
func WithStaleThreshold(d time.Duration) Option {
	return func(s *Session) {
		s.staleThreshold = d
	}
}

// WithTimer sets the scheduler driving keep-alive ticks
func WithTimer(t Timer) Option {
	return func(s *Session) {
		s.timer = t
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}
