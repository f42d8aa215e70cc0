package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wrale/automower-session/internal/oauth"
)

// ErrStopped indicates the session was stopped while starting
var ErrStopped = errors.New("session stopped")

// Session owns the lifecycle of the event stream transport: it opens it with
// a token from the token provider, verifies liveness on every poll interval,
// reconnects when the stream goes stale and dispatches inbound events.
type Session struct {
	tokens         TokenProvider
	transport      Transport
	timer          Timer
	now            func() time.Time
	logger         *slog.Logger
	pollInterval   time.Duration
	staleThreshold time.Duration

	// connMu serializes every close/open/generation-check sequence so a late
	// reconnect cannot touch a connection opened by a newer Start
	connMu sync.Mutex

	mu        sync.Mutex
	state     State
	started   time.Time // Last time the transport was opened
	lastEvent time.Time // Zero until the first message arrives
	attached  bool
	onStatus  func(*StatusEvent)

	// generation is bumped by Start and Stop so late keep-alive work is discarded
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewSession creates a stopped session
func NewSession(tokens TokenProvider, transport Transport, opts ...Option) *Session {
	s := &Session{
		tokens:         tokens,
		transport:      transport,
		timer:          NewTimer(),
		now:            time.Now,
		logger:         slog.Default(),
		pollInterval:   DefaultPollInterval,
		staleThreshold: DefaultStaleThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.staleThreshold <= 0 {
		s.staleThreshold = DefaultStaleThreshold
	}
	return s
}

// OnStatusEventReceived registers the callback for status events,
// replacing any previous one
func (s *Session) OnStatusEventReceived(handler func(*StatusEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = handler
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the transport and arms the keep-alive timer.
// The inbound handler is registered on the transport only once per session.
func (s *Session) Start(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	if !s.attached {
		s.transport.On(s.handleEvent)
		s.attached = true
	}
	if s.cancel != nil {
		s.cancel()
	}
	// Keep-alive work outlives the caller's context until Stop
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.generation++
	gen := s.generation
	s.state = StateStarting
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		s.mu.Lock()
		if s.generation == gen {
			s.state = StateStopped
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		_ = s.transport.Close()
		return ErrStopped
	}
	s.started = s.now()
	s.state = StateConnected
	s.timer.Start(s.tick, s.pollInterval)

	s.logger.Info("event stream connected")
	return nil
}

// Stop closes the transport and disarms the timer. It never fails and is
// safe to call before Start or more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	wasRunning := s.state != StateStopped
	s.state = StateStopped
	s.mu.Unlock()

	s.timer.Stop()
	if err := s.transport.Close(); err != nil {
		s.logger.Debug("closing event stream", slog.Any("error", err))
	}

	if wasRunning {
		s.logger.Info("event stream stopped")
	}
}

// tick runs one keep-alive check and always re-arms the timer unless the
// session was stopped meanwhile
func (s *Session) tick() {
	s.mu.Lock()
	gen := s.generation
	ctx := s.ctx
	s.mu.Unlock()

	defer s.rearm(gen)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("keep-alive panicked", slog.Any("panic", r))
		}
	}()

	if ctx == nil {
		return
	}
	if err := s.keepAlive(ctx, gen); err != nil {
		s.logger.Error("keep-alive failed", slog.Any("error", err))
	}
}

func (s *Session) rearm(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		return
	}
	s.timer.Start(s.tick, s.pollInterval)
}

func (s *Session) keepAlive(ctx context.Context, gen uint64) error {
	now := s.now()

	s.mu.Lock()
	reference := s.started
	if !s.lastEvent.IsZero() {
		reference = s.lastEvent
	}
	s.mu.Unlock()

	if now.Sub(reference) > s.staleThreshold {
		return s.reconnect(ctx, gen, reference)
	}

	if err := s.transport.Ping(); err != nil {
		return fmt.Errorf("pinging event stream: %w", err)
	}
	return nil
}

func (s *Session) reconnect(ctx context.Context, gen uint64, since time.Time) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil
	}
	s.state = StateReconnecting
	s.mu.Unlock()

	s.logger.Warn("event stream stale, reconnecting", slog.Time("last_activity", since))

	if err := s.transport.Close(); err != nil {
		s.logger.Debug("closing stale event stream", slog.Any("error", err))
	}
	if err := s.connect(ctx); err != nil {
		return fmt.Errorf("reconnecting: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		// Stopped while reconnecting
		_ = s.transport.Close()
		return nil
	}
	s.started = s.now()
	s.state = StateConnected

	s.logger.Info("event stream reconnected")
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	tok, err := s.tokens.CurrentToken(ctx)
	if err != nil {
		return fmt.Errorf("getting access token: %w", err)
	}

	if err := s.transport.Open(ctx, tok); err != nil {
		if oauth.IsNotAuthorized(err) {
			s.tokens.FlagAsInvalid()
		}
		return fmt.Errorf("opening event stream: %w", err)
	}
	return nil
}

// handleEvent is registered on the transport. It never panics back into it.
func (s *Session) handleEvent(ev *Event) {
	s.mu.Lock()
	s.lastEvent = s.now()
	handler := s.onStatus
	s.mu.Unlock()

	switch ev.Kind() {
	case KindSettings, KindPositions:
		s.logger.Debug("ignoring event", slog.String("type", ev.Type), slog.String("id", ev.ID))
	case KindStatus:
		s.dispatchStatus(handler, ev)
	default:
		s.logger.Warn("unrecognized event", slog.String("type", ev.Type), slog.String("id", ev.ID))
	}
}

func (s *Session) dispatchStatus(handler func(*StatusEvent), ev *Event) {
	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("status handler panicked", slog.String("id", ev.ID), slog.Any("panic", r))
		}
	}()

	status := &StatusEvent{ID: ev.ID}
	if len(ev.Attributes) > 0 {
		if err := json.Unmarshal(ev.Attributes, &status.Attributes); err != nil {
			s.logger.Warn("malformed status event", slog.String("id", ev.ID), slog.Any("error", err))
			return
		}
	}
	handler(status)
}
