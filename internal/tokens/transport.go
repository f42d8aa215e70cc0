package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wrale/automower-session/internal/oauth"
)

// Source provides tokens and accepts invalidation feedback
type Source interface {
	CurrentToken(ctx context.Context) (*AccessToken, error)
	FlagAsInvalid()
}

// Transport is an http.RoundTripper authorizing requests to the vendor API.
// A 401 response flags the token as invalid; retrying is left to the caller.
type Transport struct {
	Source Source
	AppKey string
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport creates an authorizing transport over http.DefaultTransport.
// A nil logger uses slog.Default().
func NewTransport(source Source, appKey string, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		Source: source,
		AppKey: appKey,
		Base:   http.DefaultTransport,
		Logger: logger,
	}
}

// RoundTrip implements http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Source.CurrentToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("getting access token: %w", err)
	}

	// Clone request to avoid modifying the original
	authReq := req.Clone(req.Context())
	authReq.Header.Set("Authorization", oauth.BearerTokenType+" "+tok.Value)
	authReq.Header.Set(oauth.HeaderProvider, tok.Provider)
	authReq.Header.Set(oauth.HeaderAPIKey, t.AppKey)

	resp, err := t.base().RoundTrip(authReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.logger().Warn("request not authorized, flagging token",
			slog.String("url", req.URL.Redacted()))
		t.Source.FlagAsInvalid()
	}
	return resp, nil
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
