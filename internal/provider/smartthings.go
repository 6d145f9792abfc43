package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// SmartThingsName is the registry key of the SmartThings adapter
	SmartThingsName = "smartthings"

	// SmartThings endpoints
	SmartThingsAuthURL  = "https://account.smartthings.com/oauth/authorize"
	SmartThingsTokenURL = "https://auth-global.api.smartthings.com/oauth/token"
	SmartThingsAPIURL   = "https://api.smartthings.com/v1"
	SmartThingsScope    = "r:devices:* w:devices:*"

	mainComponent = "main"

	// Upper bound on followed _links.next pages per listing
	maxDevicePages = 50

	// Upper bound on response bodies read from the device API
	maxBodyBytes = 1 << 20
)

// SmartThings implements Adapter for the SmartThings REST API
type SmartThings struct {
	*oauthClient
	apiURL string
}

// NewSmartThings creates a SmartThings adapter. Empty endpoint fields of cfg
// are filled with the public SmartThings endpoints.
func NewSmartThings(cfg Config, opts ...Option) *SmartThings {
	if cfg.AuthURL == "" {
		cfg.AuthURL = SmartThingsAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = SmartThingsTokenURL
	}
	if cfg.Scope == "" {
		cfg.Scope = SmartThingsScope
	}

	o := buildOptions(SmartThingsAPIURL, opts)
	return &SmartThings{
		oauthClient: newOAuthClient(SmartThingsName, cfg, o.httpClient),
		apiURL:      o.apiURL,
	}
}

// Name returns the registry key
func (s *SmartThings) Name() string { return SmartThingsName }

// DisplayName returns "SmartThings"
func (s *SmartThings) DisplayName() string { return "SmartThings" }

// SmartThings wire types

type stDeviceList struct {
	Items []stDevice `json:"items"`
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

type stDevice struct {
	DeviceID   string       `json:"deviceId"`
	Name       string       `json:"name"`
	Label      string       `json:"label"`
	Components stComponents `json:"components"`
}

type stComponent struct {
	ID           string         `json:"id"`
	Capabilities []stCapability `json:"capabilities"`
}

// stComponents accepts both the API's array form and an object keyed by component id
type stComponents []stComponent

func (c *stComponents) UnmarshalJSON(data []byte) error {
	var list []stComponent
	if err := json.Unmarshal(data, &list); err == nil {
		*c = list
		return nil
	}

	var byID map[string]stComponent
	if err := json.Unmarshal(data, &byID); err != nil {
		return fmt.Errorf("decoding components: %w", err)
	}
	for id, comp := range byID {
		comp.ID = id
		*c = append(*c, comp)
	}
	return nil
}

func (c stComponents) primary() (stComponent, bool) {
	for _, comp := range c {
		if comp.ID == mainComponent {
			return comp, true
		}
	}
	return stComponent{}, false
}

// stCapability accepts {"id":"switch","version":1} as well as "switch"
type stCapability struct {
	ID string `json:"id"`
}

func (c *stCapability) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		c.ID = id
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decoding capability: %w", err)
	}
	c.ID = obj.ID
	return nil
}

type stAttribute struct {
	Value any `json:"value"`
}

type stStatus struct {
	Components map[string]map[string]map[string]stAttribute `json:"components"`
}

// ListDevices fetches all devices and keeps those with a climate capability
func (s *SmartThings) ListDevices(ctx context.Context, accessToken string) ([]Device, error) {
	devices := []Device{}
	next := s.apiURL + "/devices"

	for page := 0; next != "" && page < maxDevicePages; page++ {
		var list stDeviceList
		if err := s.do(ctx, "list devices", http.MethodGet, next, accessToken, nil, &list); err != nil {
			return nil, err
		}

		for _, d := range list.Items {
			comp, ok := d.Components.primary()
			if !ok {
				continue
			}
			caps := make([]string, 0, len(comp.Capabilities))
			for _, c := range comp.Capabilities {
				caps = append(caps, c.ID)
			}
			if !HasRequiredCapability(caps) {
				continue
			}

			name := d.Label
			if name == "" {
				name = d.Name
			}
			devices = append(devices, Device{
				ID:           d.DeviceID,
				Name:         name,
				Type:         "air_conditioner",
				Provider:     SmartThingsName,
				Capabilities: caps,
				Status:       Unknown,
			})
		}

		next = ""
		if list.Links.Next != nil && list.Links.Next.Href != "" {
			u, err := s.sameOrigin(list.Links.Next.Href)
			if err != nil {
				return nil, &CommandError{Provider: SmartThingsName, Op: "list devices", Err: err}
			}
			next = u
		}
	}

	return devices, nil
}

// sameOrigin resolves a paging link against the API URL and rejects links to
// any other scheme or host, which would otherwise receive the bearer token
func (s *SmartThings) sameOrigin(href string) (string, error) {
	base, err := url.Parse(s.apiURL + "/")
	if err != nil {
		return "", fmt.Errorf("parsing API URL: %w", err)
	}
	u, err := base.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parsing next link: %w", err)
	}
	if u.Scheme != base.Scheme || u.Host != base.Host {
		return "", fmt.Errorf("next link points outside the device API: %s://%s", u.Scheme, u.Host)
	}
	return u.String(), nil
}

// DeviceStatus fetches the main component status of a device
func (s *SmartThings) DeviceStatus(ctx context.Context, accessToken, deviceID string) (*Status, error) {
	endpoint := s.apiURL + "/devices/" + url.PathEscape(deviceID) + "/status"

	var raw stStatus
	if err := s.do(ctx, "device status", http.MethodGet, endpoint, accessToken, nil, &raw); err != nil {
		return nil, err
	}

	comp := raw.Components[mainComponent]
	fanMode := stringAttr(comp, "airConditionerFanMode", "fanMode")
	if fanMode == Unknown {
		fanMode = stringAttr(comp, "thermostatFanMode", "thermostatFanMode")
	}

	return &Status{
		DeviceID:           deviceID,
		Provider:           SmartThingsName,
		AirConditionerMode: stringAttr(comp, "airConditionerMode", "airConditionerMode"),
		ThermostatMode:     stringAttr(comp, "thermostatMode", "thermostatMode"),
		Temperature:        numberAttr(comp, "temperatureMeasurement", "temperature"),
		FanMode:            fanMode,
		Power:              stringAttr(comp, "switch", "switch"),
		LastUpdated:        time.Now().UTC(),
	}, nil
}

// SendCommands posts the command batch in order and returns the raw acknowledgement
func (s *SmartThings) SendCommands(ctx context.Context, accessToken, deviceID string, commands []Command) (json.RawMessage, error) {
	endpoint := s.apiURL + "/devices/" + url.PathEscape(deviceID) + "/commands"
	body := struct {
		Commands []Command `json:"commands"`
	}{Commands: commands}

	var ack json.RawMessage
	if err := s.do(ctx, "send commands", http.MethodPost, endpoint, accessToken, body, &ack); err != nil {
		return nil, err
	}
	return ack, nil
}

// do performs a bearer-authenticated JSON call and decodes a 2xx response into out
func (s *SmartThings) do(ctx context.Context, op, method, endpoint, accessToken string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &CommandError{Provider: SmartThingsName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &CommandError{Provider: SmartThingsName, Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &CommandError{
			Provider:   SmartThingsName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &CommandError{
			Provider:   SmartThingsName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}

func stringAttr(component map[string]map[string]stAttribute, capability, attribute string) string {
	attr, ok := component[capability][attribute]
	if !ok || attr.Value == nil {
		return Unknown
	}
	switch v := attr.Value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return Unknown
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

func numberAttr(component map[string]map[string]stAttribute, capability, attribute string) *float64 {
	attr, ok := component[capability][attribute]
	if !ok {
		return nil
	}
	v, ok := attr.Value.(float64)
	if !ok {
		return nil
	}
	return &v
}
