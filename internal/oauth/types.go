// Package oauth provides the Husqvarna authentication client used to obtain,
// refresh and revoke OAuth2 tokens
package oauth

import "context"

// BearerTokenType is the only token type the vendor issues
const BearerTokenType = "Bearer"

// Token represents an OAuth2 token issued by the authentication endpoint
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"` // Absent for some authorization modes
	ExpiresIn    int    `json:"expires_in,omitempty"`    // Lifetime in seconds, 0 when omitted
	Provider     string `json:"provider"`                // Required on every authenticated call
	Scope        string `json:"scope,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// CanRefresh reports whether the token carries a refresh credential
func (t *Token) CanRefresh() bool {
	return t != nil && t.RefreshToken != ""
}

// Client performs the raw credential exchange against the authentication endpoint
type Client interface {
	// Login exchanges a username and password for a new token
	Login(ctx context.Context, username, password string) (*Token, error)

	// Refresh exchanges the refresh credential of token for a new token
	Refresh(ctx context.Context, token *Token) (*Token, error)

	// Logout revokes token
	Logout(ctx context.Context, token *Token) error
}

// Config holds authentication client configuration
type Config struct {
	ApplicationKey string // Vendor application key, sent as client_id and X-Api-Key
	BaseURL        string // Authentication API base URL
}
