// Package integration runs the token manager and event stream session
// against an in-process stand-in for the vendor APIs
package integration

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wrale/automower-session/internal/mowerapi"
	"github.com/wrale/automower-session/internal/oauth"
	"github.com/wrale/automower-session/internal/stream"
	"github.com/wrale/automower-session/internal/tokens"
)

// Paths served by the fake vendor
const (
	TokenPath  = "/v1/oauth2/token"
	RevokePath = "/v1/token/"
	StreamPath = "/v1/stream"
	MowersPath = "/v1/mowers"

	// ServiceTimeout bounds every wait in the suite
	ServiceTimeout = 5 * time.Second
)

// Vendor emulates the authentication API and the websocket event stream
type Vendor struct {
	T      *testing.T
	Server *httptest.Server

	// Frames written to every new stream connection
	Greeting []string

	mu          sync.Mutex
	issued      map[string]bool
	revoked     map[string]bool
	logins      int
	refreshes   int
	connections int
	rejectNext  int
	rejectREST  int
	connected   chan struct{}
}

// NewVendor starts a fake vendor that is shut down with the test
func NewVendor(t *testing.T) *Vendor {
	t.Helper()

	v := &Vendor{
		T:         t,
		issued:    make(map[string]bool),
		revoked:   make(map[string]bool),
		connected: make(chan struct{}, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenPath, v.handleToken)
	mux.HandleFunc(RevokePath, v.handleRevoke)
	mux.HandleFunc(StreamPath, v.handleStream)
	mux.HandleFunc(MowersPath, v.handleMowers)

	v.Server = httptest.NewServer(mux)
	t.Cleanup(v.Server.Close)
	return v
}

// StreamURL is the websocket address of the event stream
func (v *Vendor) StreamURL() string {
	return "ws" + strings.TrimPrefix(v.Server.URL, "http") + StreamPath
}

// RejectNextHandshakes makes the next n stream handshakes fail with 401
func (v *Vendor) RejectNextHandshakes(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rejectNext = n
}

// RejectNextREST makes the next n REST calls fail with 401
func (v *Vendor) RejectNextREST(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rejectREST = n
}

// Counts returns logins, refreshes and accepted stream connections
func (v *Vendor) Counts() (logins, refreshes, connections int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.logins, v.refreshes, v.connections
}

// Revoked reports whether token was revoked
func (v *Vendor) Revoked(token string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.revoked[token]
}

// WaitForConnections blocks until n stream connections have been accepted
func (v *Vendor) WaitForConnections(n int) {
	v.T.Helper()

	deadline := time.After(ServiceTimeout)
	for {
		if _, _, got := v.Counts(); got >= n {
			return
		}
		select {
		case <-v.connected:
		case <-deadline:
			_, _, got := v.Counts()
			v.T.Fatalf("timeout waiting for %d stream connections, got %d", n, got)
		}
	}
}

func (v *Vendor) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	v.mu.Lock()
	switch r.Form.Get("grant_type") {
	case "password":
		if r.Form.Get("password") != "secret" {
			v.mu.Unlock()
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		v.logins++
	case "refresh_token":
		v.refreshes++
	default:
		v.mu.Unlock()
		http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		return
	}
	access := fmt.Sprintf("access-%d", v.logins+v.refreshes)
	v.issued[access] = true
	v.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":%q,"token_type":"Bearer","expires_in":3600,"refresh_token":"refresh","provider":"husqvarna","scope":"iam:read","user_id":"user-1"}`, access)
}

func (v *Vendor) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimPrefix(r.URL.Path, RevokePath)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.issued[token] {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	v.revoked[token] = true
	w.WriteHeader(http.StatusNoContent)
}

func (v *Vendor) handleMowers(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	v.mu.Lock()
	authorized := v.issued[token] && !v.revoked[token] && v.rejectREST == 0 &&
		r.Header.Get(oauth.HeaderAPIKey) == "app-key"
	if v.rejectREST > 0 {
		v.rejectREST--
	}
	v.mu.Unlock()

	if !authorized {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.api+json")
	fmt.Fprint(w, `{"data":[{"type":"mower","id":"mower-1","attributes":{"system":{"name":"Front lawn"},"battery":{"batteryPercent":88},"mower":{"activity":"PARKED_IN_CS"},"metadata":{"connected":true}}}]}`)
}

func (v *Vendor) handleStream(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	v.mu.Lock()
	authorized := v.issued[token] && !v.revoked[token] && v.rejectNext == 0
	if v.rejectNext > 0 {
		v.rejectNext--
	}
	v.mu.Unlock()

	if !authorized {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.T.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	v.mu.Lock()
	v.connections++
	v.mu.Unlock()
	select {
	case v.connected <- struct{}{}:
	default:
	}

	for _, frame := range v.Greeting {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return
		}
	}

	// Stay silent until the client goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Stack is the client side wired the way the daemon wires it
type Stack struct {
	Manager *tokens.Manager
	Session *stream.Session
	API     *mowerapi.Client
}

// NewStack builds a manager and session against vendor
func NewStack(t *testing.T, vendor *Vendor, opts ...stream.Option) *Stack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := oauth.NewHusqvarnaClient(oauth.Config{
		ApplicationKey: "app-key",
		BaseURL:        vendor.Server.URL,
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	manager := tokens.NewManager(client,
		tokens.Credentials{Username: "user@example.com", Password: "secret"},
		tokens.WithLogger(logger),
	)

	opts = append([]stream.Option{stream.WithLogger(logger)}, opts...)
	session := stream.NewSession(manager,
		stream.NewWebsocketTransport(vendor.StreamURL(), "app-key", logger),
		opts...,
	)
	t.Cleanup(session.Stop)

	api := mowerapi.NewClient(vendor.Server.URL, &http.Client{
		Timeout:   ServiceTimeout,
		Transport: tokens.NewTransport(manager, "app-key", logger),
	})

	return &Stack{Manager: manager, Session: session, API: api}
}
