package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wrale/automower-session/internal/oauth"
	"github.com/wrale/automower-session/internal/tokens"
)

const (
	// DefaultURL is the Automower Connect event stream endpoint
	DefaultURL = "wss://ws.openapi.husqvarna.dev/v1"

	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

// ErrNotConnected indicates the transport has no open connection
var ErrNotConnected = errors.New("event stream not connected")

// WebsocketTransport implements Transport over a websocket connection
type WebsocketTransport struct {
	url    string
	appKey string
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(*Event)
}

// NewWebsocketTransport creates a transport for the given endpoint
func NewWebsocketTransport(url, appKey string, logger *slog.Logger) *WebsocketTransport {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebsocketTransport{
		url:    url,
		appKey: appKey,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger,
	}
}

// On registers the single inbound event handler
func (t *WebsocketTransport) On(handler func(*Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Open dials the endpoint presenting token as a bearer credential.
// Any previously open connection is closed.
func (t *WebsocketTransport) Open(ctx context.Context, token *tokens.AccessToken) error {
	header := http.Header{}
	header.Set("Authorization", oauth.BearerTokenType+" "+token.Value)
	header.Set(oauth.HeaderProvider, token.Provider)
	if t.appKey != "" {
		header.Set(oauth.HeaderAPIKey, t.appKey)
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil {
			if mapped := oauth.StatusError(resp.StatusCode); mapped != nil {
				return fmt.Errorf("dialing event stream: %w", mapped)
			}
		}
		return fmt.Errorf("dialing event stream: %w", err)
	}

	t.mu.Lock()
	old := t.conn
	t.conn = conn
	t.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	go t.readLoop(conn)
	return nil
}

// Close terminates the connection without a close handshake
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Ping sends a ping control frame
func (t *WebsocketTransport) Ping() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("writing ping: %w", err)
	}
	return nil
}

// readLoop delivers frames from conn until it fails.
// One goroutine per connection keeps dispatch ordered by arrival.
func (t *WebsocketTransport) readLoop(conn *websocket.Conn) {
	defer t.detach(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.logger.Debug("event stream read ended", slog.Any("error", err))
			return
		}

		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.logger.Warn("discarding malformed event", slog.Any("error", err))
			continue
		}

		t.mu.Lock()
		handler := t.handler
		t.mu.Unlock()

		if handler != nil {
			handler(&ev)
		}
	}
}

func (t *WebsocketTransport) detach(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == conn {
		t.conn = nil
	}
	_ = conn.Close()
}
