package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// HTTP request timeout applied when no client is supplied
	defaultTimeout = 10 * time.Second
)

// Option configures an adapter
type Option func(*options)

type options struct {
	httpClient *http.Client
	apiURL     string
}

// WithHTTPClient sets the client used for all outbound provider calls
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTimeout sets a bounded timeout on the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithAPIURL overrides the provider's device API base URL
func WithAPIURL(u string) Option {
	return func(o *options) {
		o.apiURL = strings.TrimSuffix(u, "/")
	}
}

func buildOptions(defaultAPIURL string, opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiURL:     defaultAPIURL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// oauthClient implements the OAuth2 half of an adapter on top of x/oauth2
type oauthClient struct {
	name       string
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

func newOAuthClient(name string, cfg Config, httpClient *http.Client) *oauthClient {
	return &oauthClient{
		name: name,
		cfg:  cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

// Config returns the provider's static OAuth2 configuration
func (c *oauthClient) Config() Config {
	return c.cfg
}

// AuthorizationURL sets client_id, redirect_uri, response_type=code, scope and state
func (c *oauthClient) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange exchanges an authorization code for tokens
func (c *oauthClient) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	if !c.cfg.Configured() {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNotConfigured)
	}

	token, err := c.oauth.Exchange(c.withClient(ctx), code)
	if err != nil {
		return nil, c.grantError(err)
	}
	return tokenResponse(token), nil
}

// Refresh obtains a new access token from a refresh token
func (c *oauthClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if !c.cfg.Configured() {
		return nil, fmt.Errorf("%s: %w", c.name, ErrNotConfigured)
	}
	if refreshToken == "" {
		return nil, &ExchangeError{Provider: c.name, Err: errors.New("missing refresh token")}
	}

	// A token without an access token is never valid, forcing the refresh grant
	src := c.oauth.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, c.grantError(err)
	}
	return tokenResponse(token), nil
}

// CheckHealth verifies client credentials are configured
func (c *oauthClient) CheckHealth(ctx context.Context) error {
	if !c.cfg.Configured() {
		return fmt.Errorf("%s: %w", c.name, ErrNotConfigured)
	}
	return nil
}

func (c *oauthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// grantError keeps the provider's error body intact
func (c *oauthClient) grantError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &ExchangeError{
			Provider:   c.name,
			StatusCode: status,
			Body:       re.Body,
			Err:        err,
		}
	}
	return &ExchangeError{Provider: c.name, Err: err}
}

// tokenResponse converts an oauth2.Token, preferring the raw expires_in
// value over the computed expiry so the stored lifetime matches the provider's
func tokenResponse(token *oauth2.Token) *TokenResponse {
	resp := &TokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
	}

	if seconds, ok := extraInt(token.Extra("expires_in")); ok {
		resp.ExpiresIn = seconds
	} else if !token.Expiry.IsZero() {
		resp.ExpiresIn = int(time.Until(token.Expiry).Round(time.Second).Seconds())
	}

	if scope, ok := token.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	return resp
}

func extraInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
