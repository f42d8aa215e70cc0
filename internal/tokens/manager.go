// Package tokens manages the lifecycle of the OAuth2 token used to talk to the
// Husqvarna cloud: obtaining it, refreshing it and discarding it
package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wrale/automower-session/internal/oauth"
)

// Credentials holds the account used for full logins
type Credentials struct {
	Username string
	Password string
}

// AccessToken is the externally visible projection of the held token
type AccessToken struct {
	Value    string // Bearer string
	Provider string // Sent as Authorization-Provider
}

// Manager owns the current OAuth2 token and decides when it must be
// obtained, refreshed or discarded
type Manager struct {
	client oauth.Client
	creds  Credentials
	now    func() time.Time
	logger *slog.Logger

	// group collapses concurrent acquisitions into one login or refresh
	group singleflight.Group

	mu          sync.Mutex
	current     *oauth.Token
	expiresAt   time.Time // Zero when the provider omitted a lifetime
	invalidated bool
}

// NewManager creates a token manager with provided options
func NewManager(client oauth.Client, creds Credentials, opts ...Option) *Manager {
	m := &Manager{
		client: client,
		creds:  creds,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CurrentToken returns a usable token, logging in or refreshing first when needed.
// It never returns a token that is expired or flagged as invalid.
func (m *Manager) CurrentToken(ctx context.Context) (*AccessToken, error) {
	m.mu.Lock()
	if m.usableLocked() {
		tok := project(m.current)
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()

	// The shared acquisition must not die with whichever caller started it
	ch := m.group.DoChan("acquire", func() (any, error) {
		return m.acquire(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*AccessToken), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FlagAsInvalid marks the held token unusable without contacting the network.
// The next CurrentToken call re-authenticates.
func (m *Manager) FlagAsInvalid() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.invalidated {
		return
	}
	m.invalidated = true
	m.logger.Debug("token flagged as invalid")
}

// Logout revokes the held token and clears local state.
// It does nothing when no token is held.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	tok := m.current
	m.mu.Unlock()

	if tok == nil {
		return nil
	}

	if err := m.client.Logout(ctx, tok); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	m.mu.Lock()
	if m.current == tok {
		m.current = nil
		m.expiresAt = time.Time{}
		m.invalidated = false
	}
	m.mu.Unlock()

	m.logger.Info("logged out")
	return nil
}

// acquire obtains a new token. Only one acquisition runs at a time.
func (m *Manager) acquire(ctx context.Context) (*AccessToken, error) {
	m.mu.Lock()
	// Another caller may have finished an acquisition since our check
	if m.usableLocked() {
		tok := project(m.current)
		m.mu.Unlock()
		return tok, nil
	}
	held := m.current
	m.mu.Unlock()

	var (
		tok *oauth.Token
		err error
	)
	switch {
	case held.CanRefresh():
		m.logger.Debug("refreshing token")
		tok, err = m.client.Refresh(ctx, held)
	default:
		// Never logged in, or expired without a refresh credential
		tok, err = m.login(ctx)
	}
	if err != nil {
		return nil, err
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = tok
	m.invalidated = false
	m.expiresAt = time.Time{}
	if tok.ExpiresIn > 0 {
		m.expiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	m.logger.Info("token acquired",
		slog.Int("expires_in", tok.ExpiresIn),
		slog.Bool("refreshable", tok.CanRefresh()))

	return project(tok), nil
}

func (m *Manager) login(ctx context.Context) (*oauth.Token, error) {
	if m.creds.Username == "" {
		return nil, fmt.Errorf("%w: username is required", oauth.ErrBadConfiguration)
	}
	if m.creds.Password == "" {
		return nil, fmt.Errorf("%w: password is required", oauth.ErrBadConfiguration)
	}

	m.logger.Debug("logging in", slog.String("username", m.creds.Username))
	return m.client.Login(ctx, m.creds.Username, m.creds.Password)
}

// usableLocked reports whether the held token may be returned as is.
// m.mu must be held.
func (m *Manager) usableLocked() bool {
	if m.current == nil || m.invalidated {
		return false
	}
	if m.expiresAt.IsZero() {
		return true
	}
	return m.now().Before(m.expiresAt)
}

func project(tok *oauth.Token) *AccessToken {
	return &AccessToken{
		Value:    tok.AccessToken,
		Provider: tok.Provider,
	}
}
