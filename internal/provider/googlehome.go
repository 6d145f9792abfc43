package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	// GoogleHomeName is the registry key of the Google Home adapter
	GoogleHomeName = "googlehome"

	// Google OAuth2 endpoints
	GoogleHomeAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleHomeTokenURL = "https://oauth2.googleapis.com/token"
	GoogleHomeScope    = "https://www.googleapis.com/auth/homegraph"
)

// GoogleHome connects accounts through Google OAuth2. Device control is not
// available yet, so device operations return ErrNotSupported.
type GoogleHome struct {
	*oauthClient
}

// NewGoogleHome creates a Google Home adapter. Empty endpoint fields of cfg
// are filled with the public Google endpoints.
func NewGoogleHome(cfg Config, opts ...Option) *GoogleHome {
	if cfg.AuthURL == "" {
		cfg.AuthURL = GoogleHomeAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = GoogleHomeTokenURL
	}
	if cfg.Scope == "" {
		cfg.Scope = GoogleHomeScope
	}

	o := buildOptions("", opts)
	return &GoogleHome{oauthClient: newOAuthClient(GoogleHomeName, cfg, o.httpClient)}
}

// Name returns the registry key
func (g *GoogleHome) Name() string { return GoogleHomeName }

// DisplayName returns "Google Home"
func (g *GoogleHome) DisplayName() string { return "Google Home" }

// ListDevices is not supported
func (g *GoogleHome) ListDevices(ctx context.Context, accessToken string) ([]Device, error) {
	return nil, fmt.Errorf("%s list devices: %w", GoogleHomeName, ErrNotSupported)
}

// DeviceStatus is not supported
func (g *GoogleHome) DeviceStatus(ctx context.Context, accessToken, deviceID string) (*Status, error) {
	return nil, fmt.Errorf("%s device status: %w", GoogleHomeName, ErrNotSupported)
}

// SendCommands is not supported
func (g *GoogleHome) SendCommands(ctx context.Context, accessToken, deviceID string, commands []Command) (json.RawMessage, error) {
	return nil, fmt.Errorf("%s send commands: %w", GoogleHomeName, ErrNotSupported)
}
