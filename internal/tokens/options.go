package tokens

import (
	"log/slog"
	"time"
)

// Option configures the token manager
type Option func(*Manager)

// WithClock sets the time source used for expiration checks
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}
