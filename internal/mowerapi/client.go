// Package mowerapi reads mower state from the Automower Connect REST API
package mowerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wrale/automower-session/internal/oauth"
	"github.com/wrale/automower-session/internal/stream"
)

const (
	// DefaultBaseURL is the Automower Connect REST API
	DefaultBaseURL = "https://api.amc.husqvarna.dev"

	mowersPath  = "/v1/mowers"
	contentType = "application/vnd.api+json"
)

// Mower is one entry of the mower list
type Mower struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes MowerAttributes `json:"attributes"`
}

// MowerAttributes carries the system block plus the same status blocks the
// event stream sends
type MowerAttributes struct {
	System struct {
		Name         string `json:"name"`
		Model        string `json:"model"`
		SerialNumber int64  `json:"serialNumber"`
	} `json:"system"`
	stream.StatusAttributes
}

// StatusEvent presents the mower as if its status had arrived on the stream
func (m *Mower) StatusEvent() *stream.StatusEvent {
	return &stream.StatusEvent{ID: m.ID, Attributes: m.Attributes.StatusAttributes}
}

// Client calls the REST API. Authorization is left to the http.Client's
// transport, normally a tokens.Transport.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a REST client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

// ListMowers returns every mower linked to the account
func (c *Client) ListMowers(ctx context.Context) ([]Mower, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mowersPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating mower list request: %w", err)
	}
	req.Header.Set("Accept", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing mowers: %w", err)
	}
	defer resp.Body.Close()

	if err := oauth.StatusError(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("listing mowers: %w", err)
	}

	var body struct {
		Data []Mower `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding mower list: %w", err)
	}
	return body.Data, nil
}
