// Package provider translates normalized smart-home operations into
// provider-specific OAuth2 and device API calls.
package provider

import (
	"context"
	"encoding/json"
	"time"
)

// Unknown is reported for status fields the provider did not return
const Unknown = "unknown"

// RequiredCapabilities lists the capabilities that make a device an air
// conditioner or thermostat. A device needs at least one of them to be listed.
var RequiredCapabilities = []string{
	"airConditionerMode",
	"thermostatMode",
	"airConditionerFanMode",
}

// Config holds the static OAuth2 configuration of a provider
type Config struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	RedirectURI  string
}

// Configured reports whether client credentials are present
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// TokenResponse is the result of an authorization-code or refresh-token grant
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"` // Seconds; 0 when the provider sent no lifetime
	Scope        string `json:"scope,omitempty"`
}

// Command is one device command in provider wire format
type Command struct {
	Component  string `json:"component"`
	Capability string `json:"capability"`
	Command    string `json:"command"`
	Arguments  []any  `json:"arguments,omitempty"`
}

// Device is the provider-independent view of a controllable device
type Device struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Provider     string   `json:"provider"`
	Capabilities []string `json:"capabilities"`
	Status       string   `json:"status"`
}

// Status is the provider-independent view of a device's current state.
// String fields default to Unknown and Temperature to nil when absent.
type Status struct {
	DeviceID           string    `json:"deviceId"`
	Provider           string    `json:"provider"`
	AirConditionerMode string    `json:"airConditionerMode"`
	ThermostatMode     string    `json:"thermostatMode"`
	Temperature        *float64  `json:"temperature"`
	FanMode            string    `json:"fanMode"`
	Power              string    `json:"power"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// Adapter is implemented once per provider
type Adapter interface {
	// Name returns the registry key, e.g. "smartthings"
	Name() string

	// DisplayName returns a human readable provider name
	DisplayName() string

	// Config returns the provider's static OAuth2 configuration
	Config() Config

	// AuthorizationURL builds the provider authorization endpoint URL for a state token
	AuthorizationURL(state string) string

	// Exchange performs the authorization-code grant
	Exchange(ctx context.Context, code string) (*TokenResponse, error)

	// Refresh performs the refresh-token grant
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// ListDevices fetches the device inventory, filtered to climate devices
	ListDevices(ctx context.Context, accessToken string) ([]Device, error)

	// DeviceStatus fetches and normalizes the status of one device
	DeviceStatus(ctx context.Context, accessToken, deviceID string) (*Status, error)

	// SendCommands issues an ordered command batch and returns the provider's acknowledgement
	SendCommands(ctx context.Context, accessToken, deviceID string, commands []Command) (json.RawMessage, error)

	// CheckHealth verifies the adapter can be used
	CheckHealth(ctx context.Context) error
}

// HasRequiredCapability reports whether caps intersects RequiredCapabilities
func HasRequiredCapability(caps []string) bool {
	for _, c := range caps {
		for _, required := range RequiredCapabilities {
			if c == required {
				return true
			}
		}
	}
	return false
}
