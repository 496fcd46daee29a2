// Package platform implements the REST client for the commerce platform the
// app installs into: OAuth token exchange and store metadata lookups.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/errors"
	"github.com/mercidelbien-arch/merci-descuentos-app-sub000/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback translates an open platform circuit into a structured
// 503 instead of letting the raw breaker error propagate.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("commerce platform is temporarily unavailable, please retry shortly")
}

// Config holds the platform app credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthBaseURL  string
	APIBaseURL   string
}

// Client talks to the commerce platform API.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
	logger     *slog.Logger
}

// NewClient creates a new platform client.
func NewClient(cfg Config, httpClient HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AuthorizeURL builds the URL the install flow redirects the merchant to.
// The state parameter round-trips through the platform for CSRF protection.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("state", state)
	return fmt.Sprintf("%s/apps/%s/authorize?%s", c.cfg.AuthBaseURL, c.cfg.ClientID, q.Encode())
}

// TokenResponse is the platform's answer to an authorization-code exchange.
// UserID identifies the store the app was installed into.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	UserID      int64  `json:"user_id"`
}

// StoreID returns the store identifier as used throughout this service.
func (t *TokenResponse) StoreID() string {
	return strconv.FormatInt(t.UserID, 10)
}

// ExchangeCode trades the OAuth authorization code for a store access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("authorization code is required")
	}

	payload := map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"grant_type":    "authorization_code",
		"code":          code,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthBaseURL+"/apps/authorize/token", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call platform token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "platform")
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, apperrors.Unauthorized("platform returned an empty access token")
	}

	c.logger.InfoContext(ctx, "exchanged authorization code",
		slog.String("store_id", token.StoreID()),
		slog.String("scope", token.Scope),
	)

	return &token, nil
}

// StoreInfo is the subset of the platform's store resource this app reads.
type StoreInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GetStore fetches the store's metadata with the store's access token.
func (c *Client) GetStore(ctx context.Context, storeID, accessToken string) (*StoreInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/%s/store", c.cfg.APIBaseURL, storeID), nil)
	if err != nil {
		return nil, fmt.Errorf("create store request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call platform store endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "platform")
	}

	var store StoreInfo
	if err := json.NewDecoder(resp.Body).Decode(&store); err != nil {
		return nil, fmt.Errorf("decode store response: %w", err)
	}
	return &store, nil
}
