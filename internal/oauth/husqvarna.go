package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the Husqvarna authentication API
	DefaultBaseURL = "https://api.authentication.husqvarnagroup.dev"

	// Header names required on every authenticated call
	HeaderAPIKey   = "X-Api-Key"
	HeaderProvider = "Authorization-Provider"

	tokenPath  = "/v1/oauth2/token"
	revokePath = "/v1/token/"

	// HTTP request timeouts
	defaultTimeout = 10 * time.Second
)

// HusqvarnaClient implements Client against the Husqvarna authentication API
type HusqvarnaClient struct {
	client    *http.Client
	appKey    string
	revokeURL string
	oauth     *oauth2.Config
}

// NewHusqvarnaClient creates a new authentication client
func NewHusqvarnaClient(cfg Config) (*HusqvarnaClient, error) {
	if cfg.ApplicationKey == "" {
		return nil, fmt.Errorf("%w: application key is required", ErrBadConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid base URL: %v", ErrBadConfiguration, err)
	}

	return &HusqvarnaClient{
		client:    &http.Client{Timeout: defaultTimeout},
		appKey:    cfg.ApplicationKey,
		revokeURL: baseURL + revokePath,
		oauth: &oauth2.Config{
			ClientID: cfg.ApplicationKey,
			Endpoint: oauth2.Endpoint{
				TokenURL:  baseURL + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}, nil
}

// Login exchanges a username and password for a new token
func (c *HusqvarnaClient) Login(ctx context.Context, username, password string) (*Token, error) {
	tok, err := c.oauth.PasswordCredentialsToken(c.withClient(ctx), username, password)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", classify(err))
	}
	return fromOAuth2(tok), nil
}

// Refresh exchanges the refresh credential of token for a new token
func (c *HusqvarnaClient) Refresh(ctx context.Context, token *Token) (*Token, error) {
	if !token.CanRefresh() {
		return nil, fmt.Errorf("%w: refresh token is required", ErrBadConfiguration)
	}

	// An empty access token forces the source to hit the token endpoint
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", classify(err))
	}

	refreshed := fromOAuth2(tok)
	if refreshed.Provider == "" {
		refreshed.Provider = token.Provider
	}
	return refreshed, nil
}

// Logout revokes the access token
func (c *HusqvarnaClient) Logout(ctx context.Context, token *Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", ErrBadConfiguration)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.revokeURL+url.PathEscape(token.AccessToken), nil)
	if err != nil {
		return fmt.Errorf("creating revocation request: %w", err)
	}
	req.Header.Set(HeaderAPIKey, c.appKey)
	req.Header.Set(HeaderProvider, token.Provider)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending revocation request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if err := StatusError(resp.StatusCode); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

func (c *HusqvarnaClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.client)
}

// classify maps token endpoint failures onto the error taxonomy
func classify(err error) error {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) || rErr.Response == nil {
		return err
	}

	mapped := StatusError(rErr.Response.StatusCode)
	if mapped == nil {
		return err
	}
	var reqErr *RequestError
	if errors.As(mapped, &reqErr) {
		reqErr.Status = rErr.Response.Status
	}
	return mapped
}

func fromOAuth2(tok *oauth2.Token) *Token {
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = BearerTokenType
	}
	return &Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    extraInt(tok, "expires_in"),
		Provider:     extraString(tok, "provider"),
		Scope:        extraString(tok, "scope"),
		UserID:       extraString(tok, "user_id"),
	}
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}

func extraInt(tok *oauth2.Token, key string) int {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
