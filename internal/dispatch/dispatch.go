// Package dispatch turns high-level climate actions into ordered provider
// command batches and runs them with the user's stored token.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wrale/oauth2-home-broker/internal/provider"
	"github.com/wrale/oauth2-home-broker/internal/validation"
)

// DefaultProvider is used when a request names no provider
const DefaultProvider = provider.SmartThingsName

// Actions reported in a Result
const (
	ActionTurnOn         = "turn_on"
	ActionTurnOff        = "turn_off"
	ActionSetTemperature = "set_temperature"
)

// ValidationError is returned for invalid dispatch input
type ValidationError = validation.Error

// TokenSource resolves a user's access token for a provider
type TokenSource interface {
	Get(ctx context.Context, userID, providerName string) (string, error)
}

// AdapterLookup resolves a provider name to its adapter
type AdapterLookup interface {
	Lookup(name string) (provider.Adapter, error)
}

// TurnOnRequest describes a turn-on action. A nil Temperature or FanMode
// takes the default; an empty FanMode skips the fan command.
type TurnOnRequest struct {
	UserID      string
	DeviceID    string
	Provider    string
	Temperature *float64
	FanMode     *string
}

// Settings echoes the applied device settings
type Settings struct {
	Mode        string   `json:"mode,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	FanMode     *string  `json:"fanMode,omitempty"`
	Power       string   `json:"power,omitempty"`
}

// Result describes a dispatched command batch
type Result struct {
	Action      string          `json:"action"`
	DeviceID    string          `json:"deviceId"`
	Provider    string          `json:"provider"`
	Settings    Settings        `json:"settings"`
	Timestamp   time.Time       `json:"timestamp"`
	ProviderAck json.RawMessage `json:"commandResponse"`
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithLogger sets the logger for dispatched actions
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher runs device actions against provider adapters
type Dispatcher struct {
	tokens   TokenSource
	adapters AdapterLookup
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a dispatcher
func New(tokens TokenSource, adapters AdapterLookup, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tokens:   tokens,
		adapters: adapters,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TurnOn powers the device on in cooling mode
func (d *Dispatcher) TurnOn(ctx context.Context, req TurnOnRequest) (*Result, error) {
	temperature := DefaultTemperature
	if req.Temperature != nil {
		if err := validation.ValidateTemperature(req.Temperature); err != nil {
			return nil, err
		}
		temperature = *req.Temperature
	}
	fanMode := DefaultFanMode
	if req.FanMode != nil {
		fanMode = *req.FanMode
	}

	settings := Settings{
		Mode:        CoolingMode,
		Temperature: &temperature,
		FanMode:     &fanMode,
		Power:       "on",
	}
	return d.run(ctx, ActionTurnOn, req.UserID, req.DeviceID, req.Provider,
		TurnOnCommands(temperature, fanMode), settings)
}

// TurnOff powers the device off
func (d *Dispatcher) TurnOff(ctx context.Context, userID, deviceID, providerName string) (*Result, error) {
	return d.run(ctx, ActionTurnOff, userID, deviceID, providerName,
		TurnOffCommands(), Settings{Power: "off"})
}

// SetTemperature changes the cooling setpoint. A nil temperature fails
// before any token lookup or provider call.
func (d *Dispatcher) SetTemperature(ctx context.Context, userID, deviceID, providerName string, temperature *float64) (*Result, error) {
	if err := validation.ValidateTemperature(temperature); err != nil {
		return nil, err
	}
	t := *temperature
	return d.run(ctx, ActionSetTemperature, userID, deviceID, providerName,
		SetTemperatureCommands(t), Settings{Temperature: &t})
}

// ListDevices returns the user's climate devices at the provider
func (d *Dispatcher) ListDevices(ctx context.Context, userID, providerName string) ([]provider.Device, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	adapter, token, err := d.resolve(ctx, userID, providerName)
	if err != nil {
		return nil, err
	}

	devices, err := adapter.ListDevices(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devices, nil
}

// DeviceStatus returns the normalized status of one device
func (d *Dispatcher) DeviceStatus(ctx context.Context, userID, deviceID, providerName string) (*provider.Status, error) {
	if err := d.validateTarget(userID, deviceID); err != nil {
		return nil, err
	}
	adapter, token, err := d.resolve(ctx, userID, providerName)
	if err != nil {
		return nil, err
	}

	status, err := adapter.DeviceStatus(ctx, token, deviceID)
	if err != nil {
		return nil, fmt.Errorf("getting device status: %w", err)
	}
	return status, nil
}

func (d *Dispatcher) run(ctx context.Context, action, userID, deviceID, providerName string, commands []provider.Command, settings Settings) (*Result, error) {
	if err := d.validateTarget(userID, deviceID); err != nil {
		return nil, err
	}
	if providerName == "" {
		providerName = DefaultProvider
	}

	adapter, token, err := d.resolve(ctx, userID, providerName)
	if err != nil {
		return nil, err
	}

	ack, err := adapter.SendCommands(ctx, token, deviceID, commands)
	if err != nil {
		d.logger.Error("device command failed",
			"action", action,
			"device_id", deviceID,
			"provider", providerName,
			"error", err)
		return nil, fmt.Errorf("sending %s commands: %w", action, err)
	}

	d.logger.Info("device command sent",
		"action", action,
		"device_id", deviceID,
		"provider", providerName,
		"user_id", userID,
		"commands", len(commands))

	return &Result{
		Action:      action,
		DeviceID:    deviceID,
		Provider:    providerName,
		Settings:    settings,
		Timestamp:   d.now().UTC(),
		ProviderAck: ack,
	}, nil
}

// resolve looks up the adapter before the token so unknown providers are
// reported as such rather than as a missing connection
func (d *Dispatcher) resolve(ctx context.Context, userID, providerName string) (provider.Adapter, string, error) {
	if providerName == "" {
		providerName = DefaultProvider
	}
	adapter, err := d.adapters.Lookup(providerName)
	if err != nil {
		return nil, "", err
	}
	token, err := d.tokens.Get(ctx, userID, providerName)
	if err != nil {
		return nil, "", err
	}
	return adapter, token, nil
}

func (d *Dispatcher) validateTarget(userID, deviceID string) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return err
	}
	return validation.ValidateDeviceID(deviceID)
}
